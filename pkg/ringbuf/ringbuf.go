package ringbuf

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultCapacity is the initial storage size used by New when capacity <= 0.
const DefaultCapacity = 1024

// DefaultMaxCapacity bounds growth when no explicit limit is given.
const DefaultMaxCapacity = 64 * 1024 * 1024

var (
	// ErrCapacityExceeded is returned by Append when growth would pass the limit.
	ErrCapacityExceeded = errors.New("ringbuf: capacity limit exceeded")
	// ErrShortBuffer is returned by Consume when fewer bytes are buffered than asked for.
	ErrShortBuffer = errors.New("ringbuf: not enough buffered data")
)

// RingBuffer is a growable circular byte buffer.
// The occupied range is [start, end) modulo cap(storage). start == end always
// means empty: Append grows the storage before occupied size could reach the
// capacity.
//
// A RingBuffer is not safe for concurrent use.
type RingBuffer struct {
	storage     []byte
	start       int
	end         int
	maxCapacity int
}

// New creates a buffer of capacity bytes bounded by DefaultMaxCapacity.
func New(capacity int) *RingBuffer {
	return NewWithLimit(capacity, DefaultMaxCapacity)
}

// NewWithLimit creates a buffer that never grows beyond maxCapacity bytes.
// maxCapacity <= 0 means unbounded.
func NewWithLimit(capacity, maxCapacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer{
		storage:     make([]byte, capacity),
		maxCapacity: maxCapacity,
	}
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	if rb.end >= rb.start {
		return rb.end - rb.start
	}
	return len(rb.storage) - (rb.start - rb.end)
}

// Cap returns the current storage size.
func (rb *RingBuffer) Cap() int {
	return len(rb.storage)
}

// Free returns how many bytes can be appended without growing.
func (rb *RingBuffer) Free() int {
	return len(rb.storage) - rb.Len() - 1
}

// Append copies chunk into the buffer, growing the storage first if the
// chunk does not fit. The chunk is not retained.
func (rb *RingBuffer) Append(chunk []byte) error {
	n := len(chunk)
	if n == 0 {
		return nil
	}
	if rb.Len()+n >= len(rb.storage) {
		if err := rb.grow(rb.Len() + n); err != nil {
			return err
		}
	}

	size := len(rb.storage)
	if rb.end+n > size {
		// tail segment up to the physical end, then the head from offset 0
		tail := copy(rb.storage[rb.end:], chunk)
		copy(rb.storage, chunk[tail:])
	} else {
		copy(rb.storage[rb.end:], chunk)
	}
	rb.end = (rb.end + n) % size
	return nil
}

// grow doubles the storage until it can hold need bytes with one slot to
// spare, then moves the occupied range to the front. The last step is cut
// down to maxCapacity when that still leaves the spare slot.
func (rb *RingBuffer) grow(need int) error {
	size := len(rb.storage)
	for need >= size {
		if size > (int(^uint(0)>>1))/2 {
			return fmt.Errorf("%w: need %d bytes", ErrCapacityExceeded, need)
		}
		size *= 2
	}
	if rb.maxCapacity > 0 && size > rb.maxCapacity {
		if need >= rb.maxCapacity {
			return fmt.Errorf("%w: need %d bytes, limit %d", ErrCapacityExceeded, need, rb.maxCapacity)
		}
		size = rb.maxCapacity
	}

	next := make([]byte, size)
	occupied := rb.copyOut(next, rb.Len())
	rb.storage = next
	rb.start = 0
	rb.end = occupied
	return nil
}

// copyOut copies n logical bytes starting at start into dst without moving
// the cursors.
func (rb *RingBuffer) copyOut(dst []byte, n int) int {
	if rb.start+n > len(rb.storage) {
		tail := copy(dst, rb.storage[rb.start:])
		copy(dst[tail:n], rb.storage[:n-tail])
		return n
	}
	return copy(dst[:n], rb.storage[rb.start:rb.start+n])
}

// Consume removes n bytes from the front of the buffer and returns them in a
// freshly allocated slice.
func (rb *RingBuffer) Consume(n int) ([]byte, error) {
	if n < 0 || n > rb.Len() {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrShortBuffer, n, rb.Len())
	}
	out := make([]byte, n)
	rb.copyOut(out, n)
	rb.start = (rb.start + n) % len(rb.storage)
	return out, nil
}

// PeekHeader reads the big-endian uint32 at the front of the buffer without
// consuming it. ok is false when fewer than 4 bytes are buffered.
func (rb *RingBuffer) PeekHeader() (v uint32, ok bool) {
	if rb.Len() < 4 {
		return 0, false
	}
	if rb.start+4 <= len(rb.storage) {
		return binary.BigEndian.Uint32(rb.storage[rb.start:]), true
	}
	var hdr [4]byte
	rb.copyOut(hdr[:], 4)
	return binary.BigEndian.Uint32(hdr[:]), true
}

// Reset discards all buffered data. The storage is kept.
func (rb *RingBuffer) Reset() {
	rb.start = 0
	rb.end = 0
}
