// Package msgcenter reassembles length-prefixed messages from an arbitrarily
// chunked byte stream.
//
// Every frame on the wire is a 4-byte big-endian length followed by the
// payload, where the length includes the 4 header bytes. Chunks are fed to
// Push as they arrive; every completed payload is handed to the registered
// listeners in registration order before Push returns.
package msgcenter

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"tarun-kavipurapu/msgcenter/pkg/frame"
	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/pkg/ringbuf"
)

// ErrResourceExhausted reports that the buffer could not grow to hold the
// incoming data. The stream must be dropped.
var ErrResourceExhausted = errors.New("msgcenter: buffer resources exhausted")

// ProtocolError reports a header value that can never form a valid frame.
type ProtocolError struct {
	Length uint32
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("msgcenter: malformed frame length %d: %v", e.Length, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Listener receives one payload per decoded frame. The payload is a fresh
// copy; when several listeners are registered they share the same slice.
type Listener func(payload []byte)

// Stats is a snapshot of a Center's counters.
type Stats struct {
	Frames   uint64
	Bytes    uint64
	Buffered int
	Capacity int
}

type options struct {
	initialCapacity int
	maxCapacity     int
	limits          frame.Limits
	yieldEvery      int
	name            string
}

// Option configures a Center.
type Option func(*options)

// WithInitialCapacity sets the starting buffer size in bytes.
func WithInitialCapacity(n int) Option {
	return func(o *options) { o.initialCapacity = n }
}

// WithMaxCapacity bounds buffer growth. Zero means unbounded.
func WithMaxCapacity(n int) Option {
	return func(o *options) { o.maxCapacity = n }
}

// WithMaxFrameSize rejects headers announcing more than n bytes. Zero means unbounded.
func WithMaxFrameSize(n uint32) Option {
	return func(o *options) { o.limits.MaxFrameBytes = n }
}

// WithYieldEvery makes the decode loop call runtime.Gosched after every n
// frames. Zero disables yielding.
func WithYieldEvery(n int) Option {
	return func(o *options) { o.yieldEvery = n }
}

// WithName tags log lines, usually with the remote address.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Center buffers incoming bytes and emits complete frames.
// It is not safe for concurrent use: one goroutine owns a Center.
type Center struct {
	buf       *ringbuf.RingBuffer
	listeners []Listener
	opts      options
	err       error

	frames uint64
	bytes  uint64
}

// New creates a Center with a 1 KiB buffer, 64 MiB growth limit and 16 MiB
// frame limit unless overridden. The frame limit never exceeds what the
// buffer can hold.
func New(opts ...Option) *Center {
	o := options{
		initialCapacity: ringbuf.DefaultCapacity,
		maxCapacity:     ringbuf.DefaultMaxCapacity,
		limits:          frame.DefaultLimits(),
		yieldEvery:      64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	// one slot stays free, so a frame needs maxCapacity-1 bytes at most
	if o.maxCapacity > 0 && uint64(o.maxCapacity-1) <= math.MaxUint32 {
		fit := uint32(o.maxCapacity - 1)
		if o.limits.MaxFrameBytes == 0 || o.limits.MaxFrameBytes > fit {
			o.limits.MaxFrameBytes = fit
		}
	}
	return &Center{
		buf:  ringbuf.NewWithLimit(o.initialCapacity, o.maxCapacity),
		opts: o,
	}
}

// OnData registers a listener. Listeners are never removed.
func (c *Center) OnData(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Center) emit(payload []byte) {
	for _, l := range c.listeners {
		l(payload)
	}
}

// Push appends chunk and decodes every frame that is now complete.
// Once Push has returned an error the Center is unusable and every later
// call returns the same error.
func (c *Center) Push(chunk []byte) error {
	if c.err != nil {
		return c.err
	}
	before := c.buf.Cap()
	if err := c.buf.Append(chunk); err != nil {
		logger.Sugar.Warnf("[MsgCenter] %s: buffer growth failed: buffered=%d chunk=%d err=%v",
			c.opts.name, c.buf.Len(), len(chunk), err)
		return c.fail(fmt.Errorf("%w: %v", ErrResourceExhausted, err))
	}
	c.bytes += uint64(len(chunk))
	if after := c.buf.Cap(); after != before {
		logger.Sugar.Debugf("[MsgCenter] %s: buffer grown: cap=%d->%d buffered=%d free=%d",
			c.opts.name, before, after, c.buf.Len(), c.buf.Free())
	}
	return c.decode()
}

// fail records err and drops whatever partial data is buffered.
func (c *Center) fail(err error) error {
	c.err = err
	c.buf.Reset()
	return err
}

func (c *Center) decode() error {
	decoded := 0
	for {
		length, ok := c.buf.PeekHeader()
		if !ok {
			return nil
		}
		if err := c.opts.limits.Check(length); err != nil {
			perr := &ProtocolError{Length: length, Err: err}
			logger.Sugar.Warnf("[MsgCenter] %s: %v", c.opts.name, perr)
			return c.fail(perr)
		}
		if uint64(c.buf.Len()) < uint64(length) {
			return nil
		}

		data, err := c.buf.Consume(int(length))
		if err != nil {
			return c.fail(err)
		}
		c.frames++
		c.emit(data[frame.HeaderSize:])

		decoded++
		if c.opts.yieldEvery > 0 && decoded%c.opts.yieldEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Buffered returns the number of bytes waiting for a complete frame.
func (c *Center) Buffered() int {
	return c.buf.Len()
}

// Err returns the error that stopped the Center, if any.
func (c *Center) Err() error {
	return c.err
}

func (c *Center) Stats() Stats {
	return Stats{
		Frames:   c.frames,
		Bytes:    c.bytes,
		Buffered: c.buf.Len(),
		Capacity: c.buf.Cap(),
	}
}
