package ril

import (
	"errors"
	"fmt"
)

// Errno is a RIL_Errno value carried by a solicited response.
type Errno int32

const (
	Success                     Errno = 0
	RadioNotAvailable           Errno = 1
	GenericFailure              Errno = 2
	PasswordIncorrect           Errno = 3
	SimPin2                     Errno = 4
	SimPuk2                     Errno = 5
	RequestNotSupported         Errno = 6
	Cancelled                   Errno = 7
	OpNotAllowedDuringVoiceCall Errno = 8
)

// ErrRequestNotSupported is delivered for requests the modem cannot serve.
var ErrRequestNotSupported error = RequestNotSupported

// ErrResponseProcessing is delivered when handling a response failed unexpectedly.
var ErrResponseProcessing = errors.New("response processing failed")

var errnoNames = map[Errno]string{
	Success:                     "SUCCESS",
	RadioNotAvailable:           "RADIO_NOT_AVAILABLE",
	GenericFailure:              "GENERIC_FAILURE",
	PasswordIncorrect:           "PASSWORD_INCORRECT",
	SimPin2:                     "SIM_PIN2",
	SimPuk2:                     "SIM_PUK2",
	RequestNotSupported:         "REQUEST_NOT_SUPPORTED",
	Cancelled:                   "CANCELLED",
	OpNotAllowedDuringVoiceCall: "OP_NOT_ALLOWED_DURING_VOICE_CALL",
}

func (e Errno) Error() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return fmt.Sprintf("RIL error %d", int32(e))
}
