package motorild

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/siderolabs/go-retry/retry"
	log "github.com/sirupsen/logrus"
)

// DefaultSocketPath is where init creates the daemon socket.
const DefaultSocketPath = "/dev/socket/motorild"

// maxReply bounds what the client accepts from the daemon.
const maxReply = 256

// ErrUsage is returned by ParseArgs for anything but "ring" or "<if> <gw>".
var ErrUsage = errors.New("usage: motorilc [ring|if gw]")

// ParseArgs builds the call for motorilc command line arguments.
func ParseArgs(args []string) (Call, error) {
	switch {
	case len(args) == 1 && args[0] == "ring":
		return RingCall(), nil
	case len(args) == 2:
		return RouteCall(args[0], args[1]), nil
	default:
		return Call{}, ErrUsage
	}
}

// Client sends calls to the daemon.
type Client struct {
	SocketPath string
	// ConnectTimeout is how long connecting is retried while the socket is missing or refuses
	// connections. Zero tries once.
	ConnectTimeout time.Duration
}

// NewClient returns a client for the default socket.
func NewClient() Client {
	return Client{SocketPath: DefaultSocketPath, ConnectTimeout: 2 * time.Second}
}

func (c Client) dial() (net.Conn, error) {
	if c.ConnectTimeout <= 0 {
		return net.Dial("unix", c.SocketPath)
	}
	var conn net.Conn
	err := retry.Constant(c.ConnectTimeout, retry.WithUnits(100*time.Millisecond)).Retry(func() error {
		var err error
		conn, err = net.Dial("unix", c.SocketPath)
		if err != nil {
			log.WithFields(log.Fields{"socket": c.SocketPath, "err": err}).Debug("motorilc: daemon not reachable")
			return retry.ExpectedError(err)
		}
		return nil
	})
	return conn, err
}

// Send delivers call and returns the daemon's reply, read until the daemon closes.
func (c Client) Send(call Call) (string, error) {
	raw, err := call.Encode()
	if err != nil {
		return "", err
	}
	conn, err := c.dial()
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", c.SocketPath, err)
	}
	defer conn.Close()
	if _, err := conn.Write(raw); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	reply, err := io.ReadAll(io.LimitReader(conn, maxReply))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	log.WithFields(log.Fields{"cmd": call.Command(), "reply": string(reply)}).Debug("motorilc")
	return string(reply), nil
}
