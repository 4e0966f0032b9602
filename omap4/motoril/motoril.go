// Package motoril adapts the stock RIL transport to the Motorola OMAP4 modem firmware.
//
// The firmware misreports a few responses and relies on a helper to install the default route of
// a data connection. RIL wraps a Transport: it answers the requests the modem cannot serve,
// patches the responses that come back wrong and calls the helper where the firmware expects it.
package motoril

import (
	"strconv"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/motoomap4/omap4shim/omap4/props"
	"github.com/motoomap4/omap4shim/omap4/ril"
)

// PropLteOnCdma selects the LTE on CDMA phone type.
const PropLteOnCdma = "telephony.lteOnCdmaDevice"

// Base is the stock RIL the shim builds on.
type Base interface {
	ril.Commands
	ril.Notifier
}

// RIL is the vendor RIL. Requests it does not override go straight to the embedded Commands.
type RIL struct {
	ril.Commands
	notifier ril.Notifier
	store    props.Store
	helper   Helper

	// registration state cache, only touched by the dispatch goroutine
	voiceRegState string
	voiceDataTech string

	// set by the first SetInitialAttachApn, never reset
	initialAttachApnSeen atomic.Bool
}

// New wraps base. The caller still has to install the returned RIL as interceptor of the
// transport, Attach does both.
func New(base Base, store props.Store, helper Helper) *RIL {
	return &RIL{
		Commands: base,
		notifier: base,
		store:    store,
		helper:   helper,
	}
}

// Attach wraps t and installs the response hooks.
func Attach(t *ril.Transport, store props.Store, helper Helper) *RIL {
	r := New(t, store, helper)
	t.SetInterceptor(r)
	return r
}

// InitialAttachApnSeen reports whether an initial attach APN was configured.
func (r *RIL) InitialAttachApnSeen() bool {
	return r.initialAttachApnSeen.Load()
}

func (r *RIL) notSupported(request ril.RequestCode, cb ril.Callback) {
	log.WithField("request", request).Debug("motoOmap4RIL: not supported")
	ril.SendError(cb, ril.ErrRequestNotSupported)
}

func (r *RIL) fakeVoiceNetworkState() {
	log.Debug("motoOmap4RIL: faking VoiceNetworkState")
	r.notifier.NotifyVoiceNetworkStateChanged()
}

func (r *RIL) GetGsmBroadcastConfig(cb ril.Callback) {
	r.notSupported(ril.RequestGsmGetBroadcastConfig, cb)
}

func (r *RIL) SetGsmBroadcastConfig(configs []ril.GsmBroadcastConfig, cb ril.Callback) {
	r.notSupported(ril.RequestGsmSetBroadcastConfig, cb)
}

func (r *RIL) SetGsmBroadcastActivation(activate bool, cb ril.Callback) {
	r.notSupported(ril.RequestGsmBroadcastActivation, cb)
}

func (r *RIL) GetCdmaBroadcastConfig(cb ril.Callback) {
	r.notSupported(ril.RequestCdmaGetBroadcastConfig, cb)
}

func (r *RIL) SetCdmaBroadcastConfig(configs []ril.CdmaBroadcastConfig, cb ril.Callback) {
	r.notSupported(ril.RequestCdmaSetBroadcastConfig, cb)
}

func (r *RIL) SetCdmaBroadcastActivation(activate bool, cb ril.Callback) {
	r.notSupported(ril.RequestCdmaBroadcastActivation, cb)
}

func (r *RIL) GetCellInfoList(cb ril.Callback) {
	r.notSupported(ril.RequestGetCellInfoList, cb)
}

func (r *RIL) SetCellInfoListRate(rateInMillis int, cb ril.Callback) {
	r.notSupported(ril.RequestSetUnsolCellInfoListRate, cb)
}

func (r *RIL) StartLceService(reportIntervalMs int, pullMode bool, cb ril.Callback) {
	r.notSupported(ril.RequestStartLce, cb)
}

func (r *RIL) StopLceService(cb ril.Callback) {
	r.notSupported(ril.RequestStopLce, cb)
}

func (r *RIL) GetRadioCapability(cb ril.Callback) {
	r.notSupported(ril.RequestGetRadioCapability, cb)
}

func (r *RIL) GetImsRegistrationState(cb ril.Callback) {
	r.notSupported(ril.RequestImsRegistrationState, cb)
}

func (r *RIL) GetHardwareConfig(cb ril.Callback) {
	r.notSupported(ril.RequestGetHardwareConfig, cb)
}

// SetDataAllowed is not understood by the firmware, which never reports the voice network state
// the data stack waits for either.
func (r *RIL) SetDataAllowed(allowed bool, cb ril.Callback) {
	r.fakeVoiceNetworkState()
	r.notSupported(ril.RequestAllowData, cb)
}

// SetupDataCall announces a voice network state change the firmware omits before delegating.
func (r *RIL) SetupDataCall(req ril.DataCallRequest, cb ril.Callback) {
	log.WithField("apn", req.APN).Debug("motoOmap4RIL: setupDataCall")
	r.fakeVoiceNetworkState()
	r.Commands.SetupDataCall(req, cb)
}

// SetInitialAttachApn never reaches the modem. It switches data registration handling to the
// attached mode and reports success.
func (r *RIL) SetInitialAttachApn(apn ril.AttachApn, cb ril.Callback) {
	log.WithField("apn", apn.APN).Debug("motoOmap4RIL: setInitialAttachApn")
	r.initialAttachApnSeen.Store(true)
	r.fakeVoiceNetworkState()
	if cb != nil {
		cb(ril.Result{})
	}
}

// dataTech returns the cached voice data technology as a radio technology number.
func (r *RIL) dataTech() int {
	tech, err := strconv.Atoi(r.voiceDataTech)
	if err != nil {
		return 0
	}
	return tech
}
