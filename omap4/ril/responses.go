package ril

import (
	"fmt"
	"strings"

	"github.com/motoomap4/omap4shim/omap4/ril/parcel"
)

// DataCallResponse is one RIL_Data_Call_Response entry.
type DataCallResponse struct {
	Version            int
	Status             int
	SuggestedRetryTime int
	Cid                int
	Active             int
	Type               string
	Ifname             string
	Addresses          []string
	DNSes              []string
	Gateways           []string
	PCSCF              []string
	MTU                int
}

// AppStatus is one RIL_AppStatus entry of the card status.
type AppStatus struct {
	AppType       int
	AppState      int
	PersoSubstate int
	AID           string
	Label         string
	Pin1Replaced  int
	Pin1          int
	Pin2          int
}

// IccCardStatus is the RIL_CardStatus_v6 payload of GET_SIM_STATUS.
type IccCardStatus struct {
	CardState              int
	UniversalPinState      int
	GsmUmtsSubscriptionApp int
	CdmaSubscriptionApp    int
	ImsSubscriptionApp     int
	Applications           []AppStatus
}

// DataCallDecoder decodes a single data call entry of the given interface version.
type DataCallDecoder func(p *parcel.Parcel, version int) (DataCallResponse, error)

// IccCardStatusDecoder decodes a card status payload.
type IccCardStatusDecoder func(p *parcel.Parcel) (IccCardStatus, error)

// DecodeDataCallResponse is the stock decoder for one data call entry.
func DecodeDataCallResponse(p *parcel.Parcel, version int) (DataCallResponse, error) {
	dc := DataCallResponse{Version: version}
	r := reader{p: p}
	if version < 5 {
		dc.Cid = r.int()
		dc.Active = r.int()
		dc.Type = r.str()
		r.str() // apn
		dc.Addresses = strings.Fields(r.str())
		return dc, r.err
	}
	dc.Status = r.int()
	dc.SuggestedRetryTime = r.int()
	dc.Cid = r.int()
	dc.Active = r.int()
	dc.Type = r.str()
	dc.Ifname = r.str()
	dc.Addresses = strings.Fields(r.str())
	dc.DNSes = strings.Fields(r.str())
	dc.Gateways = strings.Fields(r.str())
	if version >= 10 {
		dc.PCSCF = strings.Fields(r.str())
	}
	if version >= 11 {
		dc.MTU = r.int()
	}
	if r.err != nil {
		return DataCallResponse{}, fmt.Errorf("DecodeDataCallResponse v%d: %w", version, r.err)
	}
	return dc, nil
}

// DecodeIccCardStatus is the stock card status decoder.
func DecodeIccCardStatus(p *parcel.Parcel) (IccCardStatus, error) {
	r := reader{p: p}
	status := IccCardStatus{
		CardState:              r.int(),
		UniversalPinState:      r.int(),
		GsmUmtsSubscriptionApp: r.int(),
		CdmaSubscriptionApp:    r.int(),
		ImsSubscriptionApp:     r.int(),
	}
	numApps := r.int()
	if numApps > maxAppsInCardStatus {
		numApps = maxAppsInCardStatus
	}
	for i := 0; i < numApps && r.err == nil; i++ {
		status.Applications = append(status.Applications, AppStatus{
			AppType:       r.int(),
			AppState:      r.int(),
			PersoSubstate: r.int(),
			AID:           r.str(),
			Label:         r.str(),
			Pin1Replaced:  r.int(),
			Pin1:          r.int(),
			Pin2:          r.int(),
		})
	}
	if r.err != nil {
		return IccCardStatus{}, fmt.Errorf("DecodeIccCardStatus: %w", r.err)
	}
	return status, nil
}

// decodeDataCallList reads the version and count header followed by the entries.
func decodeDataCallList(p *parcel.Parcel, decode DataCallDecoder) ([]DataCallResponse, error) {
	version, err := p.ReadInt()
	if err != nil {
		return nil, err
	}
	num, err := p.ReadInt()
	if err != nil {
		return nil, err
	}
	if num < 0 || num*4 > p.DataAvail() {
		return nil, fmt.Errorf("decodeDataCallList: bad entry count %d", num)
	}
	result := make([]DataCallResponse, 0, num)
	for i := 0; i < num; i++ {
		dc, err := decode(p, version)
		if err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, nil
}

func decodeSetupDataCall(p *parcel.Parcel, decode DataCallDecoder) (DataCallResponse, error) {
	version, err := p.ReadInt()
	if err != nil {
		return DataCallResponse{}, err
	}
	num, err := p.ReadInt()
	if err != nil {
		return DataCallResponse{}, err
	}
	if version >= 5 && num != 1 {
		return DataCallResponse{}, fmt.Errorf("SETUP_DATA_CALL response expecting 1 entry, got %d", num)
	}
	return decode(p, version)
}

// reader keeps the first error so field by field decoding stays flat.
type reader struct {
	p   *parcel.Parcel
	err error
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, err := r.p.ReadInt()
	r.err = err
	return v
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.p.ReadString()
	r.err = err
	return v
}
