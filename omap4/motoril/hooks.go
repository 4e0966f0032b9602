package motoril

import (
	"net/netip"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/motoomap4/omap4shim/omap4/ril"
	"github.com/motoomap4/omap4shim/omap4/ril/parcel"
)

// operator numerics the firmware sends when the record is correct
var operatorSentinels = []string{"00000", "6553565535"}

// registration states counted as registered: home and roaming
var registeredStates = []string{"1", "5"}

// ProcessSolicited implements ril.Interceptor.
func (r *RIL) ProcessSolicited(resp *ril.SolicitedResponse, d ril.Dispatcher) {
	rr := resp.Request
	if resp.Error != ril.Success {
		d.Default(resp)
		return
	}
	switch rr.Code {
	case ril.RequestOperator:
		values, err := resp.Parcel.ReadStringArray()
		if err != nil {
			r.fail(rr, d, err)
			return
		}
		values = fixOperator(values)
		log.WithFields(log.Fields{"serial": rr.Serial, "value": values}).Debug("< OPERATOR")
		d.Release(rr)
		rr.Deliver(values, nil)
	case ril.RequestVoiceRegistrationState:
		values, err := resp.Parcel.ReadStringArray()
		if err != nil {
			r.fail(rr, d, err)
			return
		}
		r.recordVoiceRegistration(values)
		d.Complete(rr, values, nil)
	case ril.RequestDataRegistrationState:
		values, err := resp.Parcel.ReadStringArray()
		if err != nil {
			r.fail(rr, d, err)
			return
		}
		r.fixDataRegistration(values)
		d.Complete(rr, values, nil)
	default:
		d.Default(resp)
	}
}

func (r *RIL) fail(rr *ril.Request, d ril.Dispatcher, err error) {
	log.WithFields(log.Fields{"serial": rr.Serial, "request": rr.Code, "err": err}).Error("motoOmap4RIL: failed processing response")
	d.Complete(rr, nil, err)
}

// fixOperator drops the three bogus leading names the firmware prefixes to some records.
func fixOperator(values []string) []string {
	if len(values) < 6 || values[5] == "" || slices.Contains(operatorSentinels, values[5]) {
		return values
	}
	for i := 3; i < len(values); i++ {
		values[i-3] = values[i]
		values[i] = ""
	}
	return values
}

func (r *RIL) recordVoiceRegistration(values []string) {
	if len(values) > 0 {
		r.voiceRegState = values[0]
	}
	if len(values) > 3 {
		r.voiceDataTech = values[3]
	}
	log.WithFields(log.Fields{"state": r.voiceRegState, "tech": r.voiceDataTech}).Debug("motoOmap4RIL: voice registration")
}

// fixDataRegistration keeps data unregistered until an attach APN is configured, then makes it
// follow voice registration, which the firmware updates first.
func (r *RIL) fixDataRegistration(values []string) {
	if len(values) == 0 {
		return
	}
	if !r.initialAttachApnSeen.Load() {
		if state, err := strconv.Atoi(values[0]); err == nil && state > 0 {
			log.WithField("state", values[0]).Debug("motoOmap4RIL: hiding data registration before attach")
			values[0] = "0"
		}
		return
	}
	if !slices.Contains(registeredStates, values[0]) && slices.Contains(registeredStates, r.voiceRegState) {
		log.WithFields(log.Fields{"data": values[0], "voice": r.voiceRegState}).Debug("motoOmap4RIL: data registration follows voice")
		values[0] = r.voiceRegState
		if len(values) > 3 {
			values[3] = r.voiceDataTech
		}
	}
}

// ProcessUnsolicited implements ril.Interceptor.
func (r *RIL) ProcessUnsolicited(p *parcel.Parcel, next func(p *parcel.Parcel)) {
	pos := p.DataPosition()
	code, err := p.ReadInt32()
	p.SetDataPosition(pos)
	if err == nil && ril.UnsolicitedCode(code) == ril.UnsolCallRing {
		r.helper.Run("ring")
	}
	next(p)
}

// DataCallResponse implements ril.Interceptor. The entry is peeked at to route the gateway
// through the helper, the result is the stock decoding.
func (r *RIL) DataCallResponse(p *parcel.Parcel, version int, next ril.DataCallDecoder) (ril.DataCallResponse, error) {
	pos := p.DataPosition()
	if version >= 5 {
		r.routeDataCall(p)
	}
	p.SetDataPosition(pos)
	return next(p, version)
}

func (r *RIL) routeDataCall(p *parcel.Parcel) {
	for i := 0; i < 4; i++ {
		// status, suggested retry time, cid, active
		if _, err := p.ReadInt32(); err != nil {
			log.WithField("err", err).Warn("motoOmap4RIL: short data call response")
			return
		}
	}
	// type, ifname, addresses, dnses, gateways
	var fields [5]string
	for i := range fields {
		var err error
		fields[i], err = p.ReadString()
		if err != nil {
			log.WithField("err", err).Warn("motoOmap4RIL: short data call response")
			return
		}
	}
	ifname, addrs, gws := fields[1], fields[2], fields[4]
	entry := log.WithFields(log.Fields{"type": fields[0], "ifname": ifname, "addresses": addrs, "gateways": gws})
	entry.Debug("motoOmap4RIL: data call")
	gw, ok := firstIPv4(gws)
	if ifname != "" && ok {
		entry.WithField("gateway", gw).Info("motoOmap4RIL: routing data call")
		r.helper.Run(ifname, gw.String())
	}
}

// firstIPv4 returns the first entry of a space separated address list that parses as IPv4.
// IPv4-mapped IPv6 addresses count as IPv4.
func firstIPv4(list string) (netip.Addr, bool) {
	for _, a := range strings.Split(list, " ") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		addr, err := netip.ParseAddr(a)
		if err != nil {
			log.WithField("address", a).Debug("motoOmap4RIL: can't parse")
			continue
		}
		addr = addr.Unmap()
		if addr.Is4() {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// IccCardStatus implements ril.Interceptor. A card without CDMA application turns LTE on CDMA
// mode off, the result is the stock decoding.
func (r *RIL) IccCardStatus(p *parcel.Parcel, next ril.IccCardStatusDecoder) (ril.IccCardStatus, error) {
	pos := p.DataPosition()
	r.checkLteOnCdma(p)
	p.SetDataPosition(pos)
	return next(p)
}

func (r *RIL) checkLteOnCdma(p *parcel.Parcel) {
	var header [4]int32
	for i := range header {
		v, err := p.ReadInt32()
		if err != nil {
			log.WithField("err", err).Warn("motoOmap4RIL: short card status")
			return
		}
		header[i] = v
	}
	cardState, gsmUmtsIndex, cdmaIndex := header[0], header[2], header[3]
	if cardState != ril.CardStatePresent || cdmaIndex >= 0 || gsmUmtsIndex < 0 {
		return
	}
	if r.store.Get(PropLteOnCdma) != "1" {
		return
	}
	log.Info("motoOmap4RIL: no CDMA application on the card, leaving LTE on CDMA mode")
	if err := r.store.Set(PropLteOnCdma, "0"); err != nil {
		log.WithFields(log.Fields{"property": PropLteOnCdma, "err": err}).Warn("motoOmap4RIL: could not leave LTE on CDMA mode")
	}
	r.notifier.NotifyVoiceNetworkStateChanged()
	r.notifier.NotifyVoiceRadioTechChanged(r.dataTech())
}
