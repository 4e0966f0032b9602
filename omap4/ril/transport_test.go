package ril_test

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoomap4/omap4shim/omap4/ril"
	"github.com/motoomap4/omap4shim/omap4/ril/parcel"
	"github.com/motoomap4/omap4shim/omap4/ril/riltest"
)

func newTransport(t *testing.T) (*ril.Transport, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return ril.NewTransport(buf), buf
}

func lastRequest(t *testing.T, buf *bytes.Buffer) riltest.SentRequest {
	t.Helper()
	reqs, err := riltest.ReadRequests(buf)
	require.NoError(t, err)
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

func TestSolicitedStrings(t *testing.T) {
	tr, buf := newTransport(t)
	var got ril.Result
	tr.GetOperator(func(r ril.Result) { got = r })
	req := lastRequest(t, buf)
	assert.Equal(t, ril.RequestOperator, req.Code)
	assert.Equal(t, 1, tr.Pending())

	tr.HandleFrame(riltest.Solicited(req.Serial, ril.Success, riltest.Strings("Vodafone", "VF", "26202")))
	require.NoError(t, got.Err)
	assert.Equal(t, []string{"Vodafone", "VF", "26202"}, got.Value)
	assert.Equal(t, 0, tr.Pending())
}

func TestSolicitedError(t *testing.T) {
	tr, buf := newTransport(t)
	var got ril.Result
	tr.GetCellInfoList(func(r ril.Result) { got = r })
	req := lastRequest(t, buf)

	tr.HandleFrame(riltest.Solicited(req.Serial, ril.RequestNotSupported, nil))
	assert.ErrorIs(t, got.Err, ril.ErrRequestNotSupported)
	assert.Equal(t, 0, tr.Pending())
}

func TestUnknownSerialIsIgnored(t *testing.T) {
	tr, buf := newTransport(t)
	called := false
	tr.GetOperator(func(r ril.Result) { called = true })
	req := lastRequest(t, buf)

	tr.HandleFrame(riltest.Solicited(req.Serial+10, ril.Success, riltest.Strings("x")))
	assert.False(t, called)
	assert.Equal(t, 1, tr.Pending())
}

func TestSetupDataCallRequestAndResponse(t *testing.T) {
	tr, buf := newTransport(t)
	var got ril.Result
	tr.SetupDataCall(ril.DataCallRequest{RadioTechnology: "14", Profile: "0", APN: "internet", AuthType: "0", Protocol: "IP"}, func(r ril.Result) { got = r })
	req := lastRequest(t, buf)
	assert.Equal(t, ril.RequestSetupDataCall, req.Code)
	params, err := req.Parcel.ReadStringArray()
	require.NoError(t, err)
	assert.Equal(t, []string{"14", "0", "internet", "", "", "0", "IP"}, params)

	dc := ril.DataCallResponse{Cid: 1, Active: 2, Type: "IP", Ifname: "rmnet1", Addresses: []string{"10.0.0.5/30"}, DNSes: []string{"8.8.8.8"}, Gateways: []string{"10.0.0.6"}}
	tr.HandleFrame(riltest.Solicited(req.Serial, ril.Success, riltest.DataCallList(6, dc)))
	require.NoError(t, got.Err)
	dc.Version = 6
	assert.Equal(t, dc, got.Value)
}

func TestSetupDataCallRejectsSeveralEntries(t *testing.T) {
	tr, buf := newTransport(t)
	var got ril.Result
	tr.SetupDataCall(ril.DataCallRequest{}, func(r ril.Result) { got = r })
	req := lastRequest(t, buf)

	dc := ril.DataCallResponse{Ifname: "rmnet1"}
	tr.HandleFrame(riltest.Solicited(req.Serial, ril.Success, riltest.DataCallList(6, dc, dc)))
	assert.Error(t, got.Err)
}

func TestIccCardStatus(t *testing.T) {
	tr, buf := newTransport(t)
	var got ril.Result
	tr.GetIccCardStatus(func(r ril.Result) { got = r })
	req := lastRequest(t, buf)

	status := ril.IccCardStatus{
		CardState:              ril.CardStatePresent,
		GsmUmtsSubscriptionApp: 0,
		CdmaSubscriptionApp:    -1,
		ImsSubscriptionApp:     -1,
		Applications:           []ril.AppStatus{{AppType: 2, AppState: 5, AID: "a0000000871002", Label: "USIM"}},
	}
	tr.HandleFrame(riltest.Solicited(req.Serial, ril.Success, riltest.CardStatus(status)))
	require.NoError(t, got.Err)
	assert.Equal(t, status, got.Value)
}

func TestUnsolicitedRegistrants(t *testing.T) {
	tr, _ := newTransport(t)
	voice := 0
	tech := 0
	var calls []ril.DataCallResponse
	var other ril.UnsolicitedEvent
	tr.VoiceNetworkStateChanged.Add(func(interface{}) { voice++ })
	tr.VoiceRadioTechChanged.Add(func(v interface{}) { tech = v.(int) })
	tr.DataCallListChanged.Add(func(v interface{}) { calls = v.([]ril.DataCallResponse) })
	tr.Unsolicited.Add(func(v interface{}) { other = v.(ril.UnsolicitedEvent) })

	tr.HandleFrame(riltest.Unsolicited(ril.UnsolVoiceNetworkStateChanged, nil))
	tr.HandleFrame(riltest.Unsolicited(ril.UnsolVoiceRadioTechChanged, riltest.Ints(14)))
	tr.HandleFrame(riltest.Unsolicited(ril.UnsolDataCallListChanged, riltest.DataCallList(9, ril.DataCallResponse{Cid: 3})))
	tr.HandleFrame(riltest.Unsolicited(ril.UnsolNitzTimeReceived, nil))

	assert.Equal(t, 1, voice)
	assert.Equal(t, 14, tech)
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0].Cid)
	assert.Equal(t, ril.UnsolNitzTimeReceived, other.Code)
}

type panicking struct{ ril.Interceptor }

func (panicking) ProcessUnsolicited(p *parcel.Parcel, next func(p *parcel.Parcel)) {
	panic("boom")
}

func TestHandleFrameRecoversPanics(t *testing.T) {
	tr, _ := newTransport(t)
	tr.SetInterceptor(panicking{})
	assert.NotPanics(t, func() {
		tr.HandleFrame(riltest.Unsolicited(ril.UnsolCallRing, nil))
	})
}

type panickingSolicited struct{ ril.Interceptor }

func (panickingSolicited) ProcessSolicited(resp *ril.SolicitedResponse, d ril.Dispatcher) {
	panic("boom")
}

func TestSolicitedPanicFailsRequest(t *testing.T) {
	tr, buf := newTransport(t)
	tr.SetInterceptor(panickingSolicited{})
	calls := 0
	var got ril.Result
	tr.GetOperator(func(r ril.Result) {
		calls++
		got = r
	})
	reqs, err := riltest.ReadRequests(buf)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	assert.NotPanics(t, func() {
		tr.HandleFrame(riltest.Solicited(reqs[0].Serial, ril.Success, riltest.Strings("a", "b", "c")))
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, got.Err, ril.ErrResponseProcessing)
	assert.Nil(t, got.Value)
	assert.Equal(t, 0, tr.Pending())
}

func TestPanickingCallbackIsNotCalledTwice(t *testing.T) {
	tr, buf := newTransport(t)
	calls := 0
	tr.GetOperator(func(r ril.Result) {
		calls++
		panic("callback")
	})
	reqs, err := riltest.ReadRequests(buf)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	assert.NotPanics(t, func() {
		tr.HandleFrame(riltest.Solicited(reqs[0].Serial, ril.Success, riltest.Strings("a")))
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, tr.Pending())
}

func TestRunOverSocket(t *testing.T) {
	client, modem := net.Pipe()
	defer client.Close()
	defer modem.Close()

	tr := ril.NewTransport(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	results := make(chan ril.Result, 1)
	go tr.GetVoiceRegistrationState(func(r ril.Result) { results <- r })

	frame, err := ril.ReadFrame(modem)
	require.NoError(t, err)
	p := parcel.New(frame)
	code, _ := p.ReadInt32()
	serial, _ := p.ReadInt32()
	assert.Equal(t, int32(ril.RequestVoiceRegistrationState), code)
	require.NoError(t, ril.WriteFrame(modem, riltest.Solicited(serial, ril.Success, riltest.Strings("1", "", "", "14"))))

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, []string{"1", "", "", "14"}, r.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("no response delivered")
	}

	modem.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
