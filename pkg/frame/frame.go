package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the length of the big-endian total-length prefix.
// The prefix counts itself: a frame carrying an empty payload has length 4.
const HeaderSize = 4

var (
	ErrFrameTooShort = errors.New("frame: length smaller than header")
	ErrFrameTooLarge = errors.New("frame: length exceeds limit")
)

// Limits constrains the frame lengths a decoder accepts.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 16 * 1024 * 1024,
	}
}

// Check validates a header value. A zero MaxFrameBytes disables the upper bound.
func (l Limits) Check(length uint32) error {
	if length < HeaderSize {
		return fmt.Errorf("%w: %d", ErrFrameTooShort, length)
	}
	if l.MaxFrameBytes > 0 && length > l.MaxFrameBytes {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, l.MaxFrameBytes)
	}
	return nil
}

// Encode returns header+payload as one slice.
func Encode(payload []byte) ([]byte, error) {
	if uint64(len(payload))+HeaderSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)+HeaderSize))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Write frames payload onto w with a single Write call.
func Write(w io.Writer, payload []byte) error {
	buf, err := Encode(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Packet is an outbound payload waiting to be framed.
type Packet struct {
	Length  int
	Content []byte
}

func Pack(b []byte) *Packet {
	return &Packet{Length: len(b), Content: b}
}

// Bytes returns the framed packet.
func (p *Packet) Bytes() ([]byte, error) {
	return Encode(p.Content)
}
