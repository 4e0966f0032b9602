//go:build !linux

package motorild

import (
	"errors"
	"net"
)

type ucred struct {
	Pid int32
	Uid uint32
	Gid uint32
}

func peerCredentials(conn net.Conn) (*ucred, error) {
	return nil, errors.New("peer credentials not supported")
}
