package ril

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/motoomap4/omap4shim/omap4/ril/parcel"
)

// SolicitedResponse is a response to an outstanding request, positioned right after the
// serial and error header.
type SolicitedResponse struct {
	Request *Request
	Error   Errno
	Parcel  *parcel.Parcel
}

// Dispatcher exposes the stock solicited handling to an Interceptor.
type Dispatcher interface {
	// Default decodes resp the stock way and completes it.
	Default(resp *SolicitedResponse)
	// Complete is the generic completion path: log, deliver to the caller and release the request.
	Complete(rr *Request, value interface{}, err error)
	// Release drops rr from the pending request registry without delivering anything.
	Release(rr *Request)
}

// Interceptor hooks the response processing of a Transport. Every method receives the stock
// implementation and decides whether, and when, to call it.
type Interceptor interface {
	ProcessSolicited(resp *SolicitedResponse, d Dispatcher)
	ProcessUnsolicited(p *parcel.Parcel, next func(p *parcel.Parcel))
	DataCallResponse(p *parcel.Parcel, version int, next DataCallDecoder) (DataCallResponse, error)
	IccCardStatus(p *parcel.Parcel, next IccCardStatusDecoder) (IccCardStatus, error)
}

// passthrough is the Interceptor used when nothing is installed.
type passthrough struct{}

func (passthrough) ProcessSolicited(resp *SolicitedResponse, d Dispatcher) { d.Default(resp) }

func (passthrough) ProcessUnsolicited(p *parcel.Parcel, next func(p *parcel.Parcel)) { next(p) }

func (passthrough) DataCallResponse(p *parcel.Parcel, version int, next DataCallDecoder) (DataCallResponse, error) {
	return next(p, version)
}

func (passthrough) IccCardStatus(p *parcel.Parcel, next IccCardStatusDecoder) (IccCardStatus, error) {
	return next(p)
}

// UnsolicitedEvent is passed to Transport.Unsolicited for codes without a dedicated registrant list.
type UnsolicitedEvent struct {
	Code UnsolicitedCode
	Raw  []byte
}

// Transport speaks the rild socket protocol. Requests may be issued from any goroutine, responses
// are handled one at a time by the goroutine running Run.
type Transport struct {
	conn    io.ReadWriter
	writeMu sync.Mutex

	mu         sync.Mutex
	pending    map[int32]*Request
	nextSerial int32

	interceptor Interceptor

	VoiceNetworkStateChanged Registrants
	VoiceRadioTechChanged    Registrants
	DataCallListChanged      Registrants
	CallRing                 Registrants
	Unsolicited              Registrants
}

// NewTransport creates a Transport on top of an established rild connection.
func NewTransport(conn io.ReadWriter) *Transport {
	return &Transport{
		conn:        conn,
		pending:     map[int32]*Request{},
		interceptor: passthrough{},
	}
}

// SetInterceptor installs i, nil restores the stock behaviour. It must be called before Run.
func (t *Transport) SetInterceptor(i Interceptor) {
	if i == nil {
		i = passthrough{}
	}
	t.interceptor = i
}

// Run reads and handles responses until the connection fails or ctx is done. Closing the
// connection is up to the caller.
func (t *Transport) Run(ctx context.Context) error {
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			frame, err := ReadFrame(t.conn)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				log.Info("rild connection closed")
				return nil
			}
			return err
		case frame := <-frames:
			t.HandleFrame(frame)
		}
	}
}

// HandleFrame processes one response record. A panic while handling it is logged and swallowed so
// the dispatch loop keeps running.
func (t *Transport) HandleFrame(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"panic": r, "len": len(frame)}).Error("failed processing rild response")
		}
	}()
	p := parcel.New(frame)
	responseType, err := p.ReadInt32()
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("empty rild response")
		return
	}
	switch responseType {
	case responseSolicited:
		t.processSolicited(p)
	case responseUnsolicited:
		t.interceptor.ProcessUnsolicited(p, t.processUnsolicited)
	default:
		log.WithFields(log.Fields{"type": responseType}).Warn("unknown rild response type")
	}
}

// Pending returns the number of requests awaiting a response.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Transport) processSolicited(p *parcel.Parcel) {
	serial, err := p.ReadInt32()
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("solicited response without serial")
		return
	}
	errno, err := p.ReadInt32()
	if err != nil {
		log.WithFields(log.Fields{"serial": serial, "err": err}).Warn("solicited response without error code")
		return
	}
	rr := t.findRequest(serial)
	if rr == nil {
		log.WithFields(log.Fields{"serial": serial, "error": Errno(errno)}).Warn("unexpected solicited response")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"serial": serial, "request": rr.Code, "panic": r}).Error("failed processing solicited response")
			// completed requests are no longer pending, their callback is not called twice
			if t.findRequest(serial) == rr {
				t.Complete(rr, nil, fmt.Errorf("%v: %w: %v", rr.Code, ErrResponseProcessing, r))
			}
		}
	}()
	t.interceptor.ProcessSolicited(&SolicitedResponse{Request: rr, Error: Errno(errno), Parcel: p}, t)
}

// Default implements Dispatcher.
func (t *Transport) Default(resp *SolicitedResponse) {
	if resp.Error != Success {
		t.Complete(resp.Request, nil, resp.Error)
		return
	}
	value, err := t.decodeSolicited(resp.Request.Code, resp.Parcel)
	if err != nil {
		log.WithFields(log.Fields{"request": resp.Request.Code, "serial": resp.Request.Serial, "err": err}).Warn("failed decoding response")
		t.Complete(resp.Request, nil, err)
		return
	}
	t.Complete(resp.Request, value, nil)
}

// Complete implements Dispatcher.
func (t *Transport) Complete(rr *Request, value interface{}, err error) {
	t.Release(rr)
	entry := log.WithFields(log.Fields{"serial": rr.Serial, "request": rr.Code, "elapsed": time.Since(rr.Created)})
	if err != nil {
		entry.WithField("err", err).Debug("< error")
	} else {
		entry.WithField("value", value).Debug("<")
	}
	rr.Deliver(value, err)
}

// Release implements Dispatcher.
func (t *Transport) Release(rr *Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, rr.Serial)
}

func (t *Transport) findRequest(serial int32) *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[serial]
}

func (t *Transport) decodeSolicited(code RequestCode, p *parcel.Parcel) (interface{}, error) {
	switch code {
	case RequestGetSimStatus:
		return t.interceptor.IccCardStatus(p, DecodeIccCardStatus)
	case RequestOperator, RequestVoiceRegistrationState, RequestDataRegistrationState:
		return p.ReadStringArray()
	case RequestBasebandVersion:
		return p.ReadString()
	case RequestSetupDataCall:
		return decodeSetupDataCall(p, t.dataCallDecoder)
	case RequestDataCallList:
		return decodeDataCallList(p, t.dataCallDecoder)
	case RequestSignalStrength, RequestImsRegistrationState, RequestGsmGetBroadcastConfig, RequestCdmaGetBroadcastConfig:
		return p.ReadInt32Array()
	default:
		return nil, nil
	}
}

func (t *Transport) dataCallDecoder(p *parcel.Parcel, version int) (DataCallResponse, error) {
	return t.interceptor.DataCallResponse(p, version, DecodeDataCallResponse)
}

func (t *Transport) processUnsolicited(p *parcel.Parcel) {
	code, err := p.ReadInt32()
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("unsolicited response without code")
		return
	}
	unsol := UnsolicitedCode(code)
	log.WithFields(log.Fields{"code": unsol}).Debug("[UNSL]<")
	switch unsol {
	case UnsolVoiceNetworkStateChanged:
		t.NotifyVoiceNetworkStateChanged()
	case UnsolVoiceRadioTechChanged:
		ints, err := p.ReadInt32Array()
		if err != nil || len(ints) == 0 {
			log.WithFields(log.Fields{"code": unsol, "err": err}).Warn("malformed unsolicited response")
			return
		}
		t.NotifyVoiceRadioTechChanged(int(ints[0]))
	case UnsolDataCallListChanged:
		calls, err := decodeDataCallList(p, t.dataCallDecoder)
		if err != nil {
			log.WithFields(log.Fields{"code": unsol, "err": err}).Warn("malformed unsolicited response")
			return
		}
		t.DataCallListChanged.Notify(calls)
	case UnsolCallRing:
		ints, _ := p.ReadInt32Array()
		t.CallRing.Notify(ints)
	default:
		raw := p.Bytes()[p.DataPosition():]
		t.Unsolicited.Notify(UnsolicitedEvent{Code: unsol, Raw: raw})
	}
}

// NotifyVoiceNetworkStateChanged implements Notifier.
func (t *Transport) NotifyVoiceNetworkStateChanged() {
	t.VoiceNetworkStateChanged.Notify(nil)
}

// NotifyVoiceRadioTechChanged implements Notifier.
func (t *Transport) NotifyVoiceRadioTechChanged(tech int) {
	t.VoiceRadioTechChanged.Notify(tech)
}

// send registers a request and writes it to the socket. A write failure completes the request
// with the error.
func (t *Transport) send(code RequestCode, cb Callback, payload func(p *parcel.Parcel)) {
	t.mu.Lock()
	t.nextSerial++
	rr := &Request{Serial: t.nextSerial, Code: code, Created: time.Now(), callback: cb}
	t.pending[rr.Serial] = rr
	t.mu.Unlock()

	p := parcel.New(nil)
	p.WriteInt32(int32(code))
	p.WriteInt32(rr.Serial)
	if payload != nil {
		payload(p)
	}
	log.WithFields(log.Fields{"serial": rr.Serial, "request": code}).Debug(">")

	t.writeMu.Lock()
	err := WriteFrame(t.conn, p.Bytes())
	t.writeMu.Unlock()
	if err != nil {
		t.Complete(rr, nil, fmt.Errorf("sending %s: %w", code, err))
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (t *Transport) GetIccCardStatus(cb Callback) { t.send(RequestGetSimStatus, cb, nil) }

func (t *Transport) GetOperator(cb Callback) { t.send(RequestOperator, cb, nil) }

func (t *Transport) GetVoiceRegistrationState(cb Callback) {
	t.send(RequestVoiceRegistrationState, cb, nil)
}

func (t *Transport) GetDataRegistrationState(cb Callback) {
	t.send(RequestDataRegistrationState, cb, nil)
}

func (t *Transport) GetDataCallList(cb Callback) { t.send(RequestDataCallList, cb, nil) }

func (t *Transport) SetupDataCall(req DataCallRequest, cb Callback) {
	t.send(RequestSetupDataCall, cb, func(p *parcel.Parcel) {
		p.WriteStringArray([]string{req.RadioTechnology, req.Profile, req.APN, req.User, req.Password, req.AuthType, req.Protocol})
	})
}

func (t *Transport) SetInitialAttachApn(apn AttachApn, cb Callback) {
	t.send(RequestSetInitialAttachApn, cb, func(p *parcel.Parcel) {
		p.WriteString(apn.APN)
		p.WriteString(apn.Protocol)
		p.WriteInt32(int32(apn.AuthType))
		p.WriteString(apn.User)
		p.WriteString(apn.Password)
	})
}

func (t *Transport) SetDataAllowed(allowed bool, cb Callback) {
	t.send(RequestAllowData, cb, func(p *parcel.Parcel) {
		p.WriteInt32Array([]int32{boolInt(allowed)})
	})
}

func (t *Transport) GetGsmBroadcastConfig(cb Callback) { t.send(RequestGsmGetBroadcastConfig, cb, nil) }

func (t *Transport) SetGsmBroadcastConfig(configs []GsmBroadcastConfig, cb Callback) {
	t.send(RequestGsmSetBroadcastConfig, cb, func(p *parcel.Parcel) {
		p.WriteInt32(int32(len(configs)))
		for _, c := range configs {
			p.WriteInt32(int32(c.FromServiceID))
			p.WriteInt32(int32(c.ToServiceID))
			p.WriteInt32(int32(c.FromCodeScheme))
			p.WriteInt32(int32(c.ToCodeScheme))
			p.WriteInt32(boolInt(c.Selected))
		}
	})
}

// SetGsmBroadcastActivation sends 0 to activate, the way ril.h defines it.
func (t *Transport) SetGsmBroadcastActivation(activate bool, cb Callback) {
	t.send(RequestGsmBroadcastActivation, cb, func(p *parcel.Parcel) {
		p.WriteInt32Array([]int32{boolInt(!activate)})
	})
}

func (t *Transport) GetCdmaBroadcastConfig(cb Callback) {
	t.send(RequestCdmaGetBroadcastConfig, cb, nil)
}

func (t *Transport) SetCdmaBroadcastConfig(configs []CdmaBroadcastConfig, cb Callback) {
	t.send(RequestCdmaSetBroadcastConfig, cb, func(p *parcel.Parcel) {
		p.WriteInt32(int32(len(configs)))
		for _, c := range configs {
			p.WriteInt32(int32(c.ServiceCategory))
			p.WriteInt32(int32(c.Language))
			p.WriteInt32(boolInt(c.Selected))
		}
	})
}

func (t *Transport) SetCdmaBroadcastActivation(activate bool, cb Callback) {
	t.send(RequestCdmaBroadcastActivation, cb, func(p *parcel.Parcel) {
		p.WriteInt32Array([]int32{boolInt(!activate)})
	})
}

func (t *Transport) GetCellInfoList(cb Callback) { t.send(RequestGetCellInfoList, cb, nil) }

func (t *Transport) SetCellInfoListRate(rateInMillis int, cb Callback) {
	t.send(RequestSetUnsolCellInfoListRate, cb, func(p *parcel.Parcel) {
		p.WriteInt32Array([]int32{int32(rateInMillis)})
	})
}

func (t *Transport) StartLceService(reportIntervalMs int, pullMode bool, cb Callback) {
	t.send(RequestStartLce, cb, func(p *parcel.Parcel) {
		p.WriteInt32Array([]int32{int32(reportIntervalMs), boolInt(pullMode)})
	})
}

func (t *Transport) StopLceService(cb Callback) { t.send(RequestStopLce, cb, nil) }

func (t *Transport) GetRadioCapability(cb Callback) { t.send(RequestGetRadioCapability, cb, nil) }

func (t *Transport) GetImsRegistrationState(cb Callback) {
	t.send(RequestImsRegistrationState, cb, nil)
}

func (t *Transport) GetHardwareConfig(cb Callback) { t.send(RequestGetHardwareConfig, cb, nil) }
