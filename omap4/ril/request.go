package ril

import (
	"sync"
	"time"
)

// Result is handed to the caller of a request once it completes.
type Result struct {
	Value interface{}
	Err   error
}

// Callback receives the Result of a request. A nil Callback discards it.
type Callback func(Result)

// Request is an outstanding solicited request, matched to its response by Serial.
type Request struct {
	Serial   int32
	Code     RequestCode
	Created  time.Time
	callback Callback
}

// Deliver passes the result to the caller's callback, if there is one.
func (r *Request) Deliver(value interface{}, err error) {
	if r.callback == nil {
		return
	}
	r.callback(Result{Value: value, Err: err})
}

// SendError synthesizes a failed completion for a request that never reached the modem.
func SendError(cb Callback, err error) {
	if cb == nil {
		return
	}
	cb(Result{Err: err})
}

// Registrants is a list of handlers notified on an event. Handlers run on the notifying goroutine.
type Registrants struct {
	mu       sync.Mutex
	handlers []func(value interface{})
}

// Add registers h.
func (r *Registrants) Add(h func(value interface{})) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Notify calls every registered handler with value.
func (r *Registrants) Notify(value interface{}) {
	r.mu.Lock()
	handlers := make([]func(interface{}), len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()
	for _, h := range handlers {
		h(value)
	}
}

// Len returns the number of registered handlers.
func (r *Registrants) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
