// Package riltest builds rild response records for tests.
package riltest

import (
	"bytes"
	"strings"

	"github.com/motoomap4/omap4shim/omap4/ril"
	"github.com/motoomap4/omap4shim/omap4/ril/parcel"
)

// Solicited builds a solicited response record.
func Solicited(serial int32, errno ril.Errno, payload func(p *parcel.Parcel)) []byte {
	p := parcel.New(nil)
	p.WriteInt32(0)
	p.WriteInt32(serial)
	p.WriteInt32(int32(errno))
	if payload != nil {
		payload(p)
	}
	return p.Bytes()
}

// Unsolicited builds an unsolicited response record.
func Unsolicited(code ril.UnsolicitedCode, payload func(p *parcel.Parcel)) []byte {
	p := parcel.New(nil)
	p.WriteInt32(1)
	p.WriteInt32(int32(code))
	if payload != nil {
		payload(p)
	}
	return p.Bytes()
}

// Strings returns a payload writer for a string array.
func Strings(values ...string) func(p *parcel.Parcel) {
	return func(p *parcel.Parcel) {
		p.WriteStringArray(values)
	}
}

// Ints returns a payload writer for an int array.
func Ints(values ...int32) func(p *parcel.Parcel) {
	return func(p *parcel.Parcel) {
		p.WriteInt32Array(values)
	}
}

// DataCall writes one v5+ data call entry.
func DataCall(p *parcel.Parcel, dc ril.DataCallResponse) {
	p.WriteInt32(int32(dc.Status))
	p.WriteInt32(int32(dc.SuggestedRetryTime))
	p.WriteInt32(int32(dc.Cid))
	p.WriteInt32(int32(dc.Active))
	p.WriteString(dc.Type)
	p.WriteString(dc.Ifname)
	p.WriteString(strings.Join(dc.Addresses, " "))
	p.WriteString(strings.Join(dc.DNSes, " "))
	p.WriteString(strings.Join(dc.Gateways, " "))
	if dc.Version >= 10 {
		p.WriteString(strings.Join(dc.PCSCF, " "))
	}
	if dc.Version >= 11 {
		p.WriteInt32(int32(dc.MTU))
	}
}

// DataCallList returns a payload writer for a data call list of the given version.
func DataCallList(version int, calls ...ril.DataCallResponse) func(p *parcel.Parcel) {
	return func(p *parcel.Parcel) {
		p.WriteInt32(int32(version))
		p.WriteInt32(int32(len(calls)))
		for _, dc := range calls {
			dc.Version = version
			DataCall(p, dc)
		}
	}
}

// CardStatus returns a payload writer for a card status.
func CardStatus(status ril.IccCardStatus) func(p *parcel.Parcel) {
	return func(p *parcel.Parcel) {
		p.WriteInt32(int32(status.CardState))
		p.WriteInt32(int32(status.UniversalPinState))
		p.WriteInt32(int32(status.GsmUmtsSubscriptionApp))
		p.WriteInt32(int32(status.CdmaSubscriptionApp))
		p.WriteInt32(int32(status.ImsSubscriptionApp))
		p.WriteInt32(int32(len(status.Applications)))
		for _, app := range status.Applications {
			p.WriteInt32(int32(app.AppType))
			p.WriteInt32(int32(app.AppState))
			p.WriteInt32(int32(app.PersoSubstate))
			p.WriteString(app.AID)
			p.WriteString(app.Label)
			p.WriteInt32(int32(app.Pin1Replaced))
			p.WriteInt32(int32(app.Pin1))
			p.WriteInt32(int32(app.Pin2))
		}
	}
}

// SentRequest is a request record written by a Transport.
type SentRequest struct {
	Code   ril.RequestCode
	Serial int32
	Parcel *parcel.Parcel
}

// ReadRequests decodes every request record written to buf so far.
func ReadRequests(buf *bytes.Buffer) ([]SentRequest, error) {
	var result []SentRequest
	for buf.Len() > 0 {
		frame, err := ril.ReadFrame(buf)
		if err != nil {
			return result, err
		}
		p := parcel.New(frame)
		code, err := p.ReadInt32()
		if err != nil {
			return result, err
		}
		serial, err := p.ReadInt32()
		if err != nil {
			return result, err
		}
		result = append(result, SentRequest{Code: ril.RequestCode(code), Serial: serial, Parcel: p})
	}
	return result, nil
}
