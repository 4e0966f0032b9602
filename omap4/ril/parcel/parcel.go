// Package parcel reads and writes the flattened Android Parcel layout used on the rild socket.
// Integers are native (little endian) int32 values, strings are UTF-16 and every item is padded
// to a multiple of four bytes.
package parcel

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// ErrShortParcel is returned when a read runs past the end of the parcel data.
var ErrShortParcel = errors.New("parcel: read past end of data")

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Parcel is a cursor over parcel bytes. Reads advance the data position, writes append.
type Parcel struct {
	data []byte
	pos  int
}

// New wraps the given bytes for reading.
func New(b []byte) *Parcel {
	return &Parcel{data: b}
}

// Bytes returns the complete parcel contents regardless of the data position.
func (p *Parcel) Bytes() []byte {
	return p.data
}

// DataPosition returns the current read offset.
func (p *Parcel) DataPosition() int {
	return p.pos
}

// SetDataPosition moves the read offset, the way a parcel is rewound after peeking at it.
func (p *Parcel) SetDataPosition(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.data) {
		pos = len(p.data)
	}
	p.pos = pos
}

// DataAvail returns the number of unread bytes.
func (p *Parcel) DataAvail() int {
	return len(p.data) - p.pos
}

// ReadInt32 reads one int32.
func (p *Parcel) ReadInt32() (int32, error) {
	if p.DataAvail() < 4 {
		return 0, fmt.Errorf("ReadInt32 at %d: %w", p.pos, ErrShortParcel)
	}
	v := int32(binary.LittleEndian.Uint32(p.data[p.pos:]))
	p.pos += 4
	return v, nil
}

// ReadInt reads one int32 and returns it as int.
func (p *Parcel) ReadInt() (int, error) {
	v, err := p.ReadInt32()
	return int(v), err
}

// ReadNullableString reads a string and reports whether it was non-null.
func (p *Parcel) ReadNullableString() (string, bool, error) {
	start := p.pos
	n, err := p.ReadInt32()
	if err != nil {
		return "", false, err
	}
	if n == -1 {
		return "", false, nil
	}
	if n < 0 {
		p.pos = start
		return "", false, fmt.Errorf("ReadString at %d: negative length %d", start, n)
	}
	size := pad4((int(n) + 1) * 2)
	if p.DataAvail() < size {
		p.pos = start
		return "", false, fmt.Errorf("ReadString at %d, length %d: %w", start, n, ErrShortParcel)
	}
	raw := p.data[p.pos : p.pos+int(n)*2]
	p.pos += size
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false, fmt.Errorf("ReadString at %d: %w", start, err)
	}
	return string(decoded), true, nil
}

// ReadString reads a string, a null string reads as "".
func (p *Parcel) ReadString() (string, error) {
	s, _, err := p.ReadNullableString()
	return s, err
}

// ReadStringArray reads an int32 count followed by that many strings. Null entries read as "".
// A count of -1 yields a nil slice.
func (p *Parcel) ReadStringArray() ([]string, error) {
	n, err := p.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if int(n)*4 > p.DataAvail() {
		return nil, fmt.Errorf("ReadStringArray: %d entries: %w", n, ErrShortParcel)
	}
	result := make([]string, n)
	for i := range result {
		result[i], err = p.ReadString()
		if err != nil {
			return nil, fmt.Errorf("ReadStringArray: entry %d: %w", i, err)
		}
	}
	return result, nil
}

// ReadInt32Array reads an int32 count followed by that many int32 values.
func (p *Parcel) ReadInt32Array() ([]int32, error) {
	n, err := p.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if int(n)*4 > p.DataAvail() {
		return nil, fmt.Errorf("ReadInt32Array: %d entries: %w", n, ErrShortParcel)
	}
	result := make([]int32, n)
	for i := range result {
		result[i], _ = p.ReadInt32()
	}
	return result, nil
}

// WriteInt32 appends one int32.
func (p *Parcel) WriteInt32(v int32) {
	p.data = binary.LittleEndian.AppendUint32(p.data, uint32(v))
}

// WriteString appends a non-null string.
func (p *Parcel) WriteString(s string) {
	encoded, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// invalid UTF-8 is replaced by the encoder, an error here means nothing usable was produced
		encoded = nil
	}
	units := len(encoded) / 2
	p.WriteInt32(int32(units))
	size := pad4((units + 1) * 2)
	buf := make([]byte, size)
	copy(buf, encoded)
	p.data = append(p.data, buf...)
}

// WriteNullString appends a null string marker.
func (p *Parcel) WriteNullString() {
	p.WriteInt32(-1)
}

// WriteStringArray appends a count followed by the strings.
func (p *Parcel) WriteStringArray(values []string) {
	p.WriteInt32(int32(len(values)))
	for _, v := range values {
		p.WriteString(v)
	}
}

// WriteInt32Array appends a count followed by the values.
func (p *Parcel) WriteInt32Array(values []int32) {
	p.WriteInt32(int32(len(values)))
	for _, v := range values {
		p.WriteInt32(v)
	}
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
