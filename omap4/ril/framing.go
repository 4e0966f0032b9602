package ril

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest record rild will exchange over its socket.
const MaxFrameSize = 8 * 1024

// ReadFrame reads one length prefixed record. The length is a big endian uint32.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	_, err := io.ReadFull(r, header)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return nil, fmt.Errorf("ReadFrame: record of %d bytes exceeds %d", length, MaxFrameSize)
	}
	frame := make([]byte, length)
	_, err = io.ReadFull(r, frame)
	if err != nil {
		return nil, fmt.Errorf("ReadFrame: reading %d bytes failed: %w", length, err)
	}
	return frame, nil
}

// WriteFrame writes b prefixed with its length.
func WriteFrame(w io.Writer, b []byte) error {
	if len(b) > MaxFrameSize {
		return fmt.Errorf("WriteFrame: record of %d bytes exceeds %d", len(b), MaxFrameSize)
	}
	buf := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[4:], b)
	_, err := w.Write(buf)
	return err
}
