package ril

// DataCallRequest carries the SETUP_DATA_CALL parameters, all passed as strings on the wire.
type DataCallRequest struct {
	RadioTechnology string
	Profile         string
	APN             string
	User            string
	Password        string
	AuthType        string
	Protocol        string
}

// AttachApn carries the SET_INITIAL_ATTACH_APN parameters.
type AttachApn struct {
	APN      string
	Protocol string
	AuthType int
	User     string
	Password string
}

// GsmBroadcastConfig is one SmsBroadcastConfigInfo range.
type GsmBroadcastConfig struct {
	FromServiceID  int
	ToServiceID    int
	FromCodeScheme int
	ToCodeScheme   int
	Selected       bool
}

// CdmaBroadcastConfig is one CdmaSmsBroadcastConfigInfo entry.
type CdmaBroadcastConfig struct {
	ServiceCategory int
	Language        int
	Selected        bool
}

// Commands is the request side of a RIL. Every method is asynchronous, the outcome is passed
// to cb once the response arrives.
type Commands interface {
	GetIccCardStatus(cb Callback)
	GetOperator(cb Callback)
	GetVoiceRegistrationState(cb Callback)
	GetDataRegistrationState(cb Callback)
	GetDataCallList(cb Callback)
	SetupDataCall(req DataCallRequest, cb Callback)
	SetInitialAttachApn(apn AttachApn, cb Callback)
	SetDataAllowed(allowed bool, cb Callback)

	GetGsmBroadcastConfig(cb Callback)
	SetGsmBroadcastConfig(configs []GsmBroadcastConfig, cb Callback)
	SetGsmBroadcastActivation(activate bool, cb Callback)
	GetCdmaBroadcastConfig(cb Callback)
	SetCdmaBroadcastConfig(configs []CdmaBroadcastConfig, cb Callback)
	SetCdmaBroadcastActivation(activate bool, cb Callback)

	GetCellInfoList(cb Callback)
	SetCellInfoListRate(rateInMillis int, cb Callback)
	StartLceService(reportIntervalMs int, pullMode bool, cb Callback)
	StopLceService(cb Callback)
	GetRadioCapability(cb Callback)
	GetImsRegistrationState(cb Callback)
	GetHardwareConfig(cb Callback)
}

// Notifier raises events towards the registered listeners.
type Notifier interface {
	NotifyVoiceNetworkStateChanged()
	NotifyVoiceRadioTechChanged(tech int)
}
