package ril

import "fmt"

// RequestCode identifies a solicited RIL request, values match ril.h.
type RequestCode int32

const (
	RequestGetSimStatus             RequestCode = 1
	RequestSignalStrength           RequestCode = 19
	RequestVoiceRegistrationState   RequestCode = 20
	RequestDataRegistrationState    RequestCode = 21
	RequestOperator                 RequestCode = 22
	RequestRadioPower               RequestCode = 23
	RequestSetupDataCall            RequestCode = 27
	RequestDeactivateDataCall       RequestCode = 41
	RequestBasebandVersion          RequestCode = 51
	RequestDataCallList             RequestCode = 57
	RequestGsmGetBroadcastConfig    RequestCode = 89
	RequestGsmSetBroadcastConfig    RequestCode = 90
	RequestGsmBroadcastActivation   RequestCode = 91
	RequestCdmaGetBroadcastConfig   RequestCode = 92
	RequestCdmaSetBroadcastConfig   RequestCode = 93
	RequestCdmaBroadcastActivation  RequestCode = 94
	RequestGetCellInfoList          RequestCode = 109
	RequestSetUnsolCellInfoListRate RequestCode = 110
	RequestSetInitialAttachApn      RequestCode = 111
	RequestImsRegistrationState     RequestCode = 112
	RequestAllowData                RequestCode = 123
	RequestGetHardwareConfig        RequestCode = 124
	RequestGetRadioCapability       RequestCode = 130
	RequestStartLce                 RequestCode = 132
	RequestStopLce                  RequestCode = 133
)

var requestNames = map[RequestCode]string{
	RequestGetSimStatus:             "GET_SIM_STATUS",
	RequestSignalStrength:           "SIGNAL_STRENGTH",
	RequestVoiceRegistrationState:   "VOICE_REGISTRATION_STATE",
	RequestDataRegistrationState:    "DATA_REGISTRATION_STATE",
	RequestOperator:                 "OPERATOR",
	RequestRadioPower:               "RADIO_POWER",
	RequestSetupDataCall:            "SETUP_DATA_CALL",
	RequestDeactivateDataCall:       "DEACTIVATE_DATA_CALL",
	RequestBasebandVersion:          "BASEBAND_VERSION",
	RequestDataCallList:             "DATA_CALL_LIST",
	RequestGsmGetBroadcastConfig:    "GSM_GET_BROADCAST_CONFIG",
	RequestGsmSetBroadcastConfig:    "GSM_SET_BROADCAST_CONFIG",
	RequestGsmBroadcastActivation:   "GSM_BROADCAST_ACTIVATION",
	RequestCdmaGetBroadcastConfig:   "CDMA_GET_BROADCAST_CONFIG",
	RequestCdmaSetBroadcastConfig:   "CDMA_SET_BROADCAST_CONFIG",
	RequestCdmaBroadcastActivation:  "CDMA_BROADCAST_ACTIVATION",
	RequestGetCellInfoList:          "GET_CELL_INFO_LIST",
	RequestSetUnsolCellInfoListRate: "SET_UNSOL_CELL_INFO_LIST_RATE",
	RequestSetInitialAttachApn:      "SET_INITIAL_ATTACH_APN",
	RequestImsRegistrationState:     "IMS_REGISTRATION_STATE",
	RequestAllowData:                "ALLOW_DATA",
	RequestGetHardwareConfig:        "GET_HARDWARE_CONFIG",
	RequestGetRadioCapability:       "GET_RADIO_CAPABILITY",
	RequestStartLce:                 "START_LCE",
	RequestStopLce:                  "STOP_LCE",
}

func (c RequestCode) String() string {
	if name, ok := requestNames[c]; ok {
		return name
	}
	return fmt.Sprintf("<unknown request %d>", int32(c))
}

// UnsolicitedCode identifies an unsolicited RIL response, values match ril.h.
type UnsolicitedCode int32

const (
	UnsolRadioStateChanged        UnsolicitedCode = 1000
	UnsolCallStateChanged         UnsolicitedCode = 1001
	UnsolVoiceNetworkStateChanged UnsolicitedCode = 1002
	UnsolNewSms                   UnsolicitedCode = 1003
	UnsolNitzTimeReceived         UnsolicitedCode = 1008
	UnsolSignalStrength           UnsolicitedCode = 1009
	UnsolDataCallListChanged      UnsolicitedCode = 1010
	UnsolCallRing                 UnsolicitedCode = 1018
	UnsolSimStatusChanged         UnsolicitedCode = 1019
	UnsolRilConnected             UnsolicitedCode = 1034
	UnsolVoiceRadioTechChanged    UnsolicitedCode = 1035
)

var unsolicitedNames = map[UnsolicitedCode]string{
	UnsolRadioStateChanged:        "UNSOL_RESPONSE_RADIO_STATE_CHANGED",
	UnsolCallStateChanged:         "UNSOL_RESPONSE_CALL_STATE_CHANGED",
	UnsolVoiceNetworkStateChanged: "UNSOL_RESPONSE_VOICE_NETWORK_STATE_CHANGED",
	UnsolNewSms:                   "UNSOL_RESPONSE_NEW_SMS",
	UnsolNitzTimeReceived:         "UNSOL_NITZ_TIME_RECEIVED",
	UnsolSignalStrength:           "UNSOL_SIGNAL_STRENGTH",
	UnsolDataCallListChanged:      "UNSOL_DATA_CALL_LIST_CHANGED",
	UnsolCallRing:                 "UNSOL_CALL_RING",
	UnsolSimStatusChanged:         "UNSOL_RESPONSE_SIM_STATUS_CHANGED",
	UnsolRilConnected:             "UNSOL_RIL_CONNECTED",
	UnsolVoiceRadioTechChanged:    "UNSOL_VOICE_RADIO_TECH_CHANGED",
}

func (c UnsolicitedCode) String() string {
	if name, ok := unsolicitedNames[c]; ok {
		return name
	}
	return fmt.Sprintf("<unknown unsolicited %d>", int32(c))
}

const (
	responseSolicited   = 0
	responseUnsolicited = 1
)

// Card states as reported in RIL_CardStatus.
const (
	CardStateAbsent  = 0
	CardStatePresent = 1
	CardStateError   = 2
)

// maxAppsInCardStatus mirrors RIL_CARD_MAX_APPS.
const maxAppsInCardStatus = 8
