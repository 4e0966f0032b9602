// Package motorild implements the privileged helper that installs data call routes and boosts
// the CPU on an incoming call, together with the motorilc client the RIL shim runs.
//
// Client and daemon exchange a single fixed size Call record over a unix socket, the daemon
// answers OK or KO and closes the connection.
package motorild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
)

// Command selects what the daemon does with a Call.
type Command int32

const (
	CmdRoute Command = 1
	CmdRing  Command = 2
)

func (c Command) String() string {
	switch c {
	case CmdRoute:
		return "route"
	case CmdRing:
		return "ring"
	default:
		return fmt.Sprintf("cmd(%d)", int32(c))
	}
}

// CallSize is the encoded size of a Call.
const CallSize = 36

const fieldSize = 16

// Call is the record motorilc sends. Dev and Gw are NUL padded.
type Call struct {
	Cmd int32           `struc:"int32"`
	Dev [fieldSize]byte `struc:"[16]byte"`
	Gw  [fieldSize]byte `struc:"[16]byte"`
}

var structOptions = &struc.Options{Order: binary.LittleEndian}

// ErrShortCall is returned when the peer closed before a complete record arrived.
var ErrShortCall = errors.New("short motoril call")

// RouteCall asks for a default route through gw on dev. Both are cut to 15 bytes.
func RouteCall(dev, gw string) Call {
	c := Call{Cmd: int32(CmdRoute)}
	copy(c.Dev[:fieldSize-1], dev)
	copy(c.Gw[:fieldSize-1], gw)
	return c
}

// RingCall asks for the incoming call boost.
func RingCall() Call {
	return Call{Cmd: int32(CmdRing)}
}

// Command returns the command of the call.
func (c Call) Command() Command {
	return Command(c.Cmd)
}

// Device returns the interface name up to the first NUL.
func (c Call) Device() string {
	return cString(c.Dev[:])
}

// Gateway returns the gateway address up to the first NUL.
func (c Call) Gateway() string {
	return cString(c.Gw[:])
}

// Encode returns the wire form of c.
func (c Call) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &c, structOptions); err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadCall reads exactly one record from r.
func ReadCall(r io.Reader) (Call, error) {
	raw := make([]byte, CallSize)
	n, err := io.ReadFull(r, raw)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Call{}, fmt.Errorf("%w: got %d of %d bytes", ErrShortCall, n, CallSize)
		}
		return Call{}, err
	}
	var c Call
	if err := struc.UnpackWithOptions(bytes.NewReader(raw), &c, structOptions); err != nil {
		return Call{}, fmt.Errorf("ReadCall: %w", err)
	}
	return c, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
