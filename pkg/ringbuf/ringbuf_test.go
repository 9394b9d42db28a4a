package ringbuf

import (
	"bytes"
	"errors"
	"testing"
)

func seq(from, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(from + i)
	}
	return b
}

func TestAppendConsumeNoWrap(t *testing.T) {
	rb := New(16)
	if err := rb.Append([]byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if rb.Len() != 5 {
		t.Fatalf("len = %d, want 5", rb.Len())
	}
	got, err := rb.Consume(5)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	if rb.Len() != 0 || rb.start != rb.end {
		t.Fatalf("buffer not empty: start=%d end=%d", rb.start, rb.end)
	}
}

func TestAppendEmptyChunk(t *testing.T) {
	rb := New(4)
	if err := rb.Append(nil); err != nil {
		t.Fatalf("append nil: %v", err)
	}
	if err := rb.Append([]byte{}); err != nil {
		t.Fatalf("append empty: %v", err)
	}
	if rb.Len() != 0 || rb.Cap() != 4 {
		t.Fatalf("len=%d cap=%d", rb.Len(), rb.Cap())
	}
}

func TestWrapAroundTwice(t *testing.T) {
	rb := New(8)
	var want []byte
	var got []byte
	next := 0
	// 5 bytes in, 5 bytes out: cursors cross the physical end repeatedly
	for round := 0; round < 6; round++ {
		chunk := seq(next, 5)
		next += 5
		want = append(want, chunk...)
		if err := rb.Append(chunk); err != nil {
			t.Fatalf("round %d append: %v", round, err)
		}
		out, err := rb.Consume(5)
		if err != nil {
			t.Fatalf("round %d consume: %v", round, err)
		}
		got = append(got, out...)
	}
	if rb.Cap() != 8 {
		t.Fatalf("unexpected growth: cap=%d", rb.Cap())
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPeekHeaderStraddlesWrap(t *testing.T) {
	for split := 1; split <= 3; split++ {
		rb := New(8)
		// place start so that only split bytes remain before the physical end
		pad := 8 - split
		if err := rb.Append(make([]byte, pad)); err != nil {
			t.Fatalf("pad: %v", err)
		}
		if _, err := rb.Consume(pad); err != nil {
			t.Fatalf("consume pad: %v", err)
		}
		if err := rb.Append([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
			t.Fatalf("append: %v", err)
		}
		if rb.Cap() != 8 {
			t.Fatalf("split=%d: unexpected growth", split)
		}
		v, ok := rb.PeekHeader()
		if !ok {
			t.Fatalf("split=%d: header not available", split)
		}
		if v != 0x01020304 {
			t.Fatalf("split=%d: header = %#x", split, v)
		}
		if rb.Len() != 4 {
			t.Fatalf("split=%d: peek consumed data", split)
		}
	}
}

func TestPeekHeaderShort(t *testing.T) {
	rb := New(8)
	_ = rb.Append([]byte{0, 0, 0})
	if _, ok := rb.PeekHeader(); ok {
		t.Fatal("expected no header with 3 bytes buffered")
	}
}

func TestGrowPreservesWrappedContent(t *testing.T) {
	rb := New(8)
	_ = rb.Append(seq(0, 6))
	if _, err := rb.Consume(4); err != nil {
		t.Fatalf("consume: %v", err)
	}
	// remaining [4,5], then wrap with 4 more
	_ = rb.Append(seq(6, 4))
	if rb.end >= rb.start {
		t.Fatalf("expected wrapped layout: start=%d end=%d", rb.start, rb.end)
	}
	// larger than twice the capacity
	big := seq(10, 40)
	if err := rb.Append(big); err != nil {
		t.Fatalf("append big: %v", err)
	}
	if rb.Cap() != 64 {
		t.Fatalf("cap = %d, want 64", rb.Cap())
	}
	got, err := rb.Consume(rb.Len())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !bytes.Equal(got, seq(4, 46)) {
		t.Fatalf("content mismatch after growth: %v", got)
	}
}

func TestExactFillGrows(t *testing.T) {
	rb := New(8)
	if err := rb.Append(seq(0, 8)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if rb.Cap() != 16 {
		t.Fatalf("cap = %d, want 16", rb.Cap())
	}
	if rb.Len() != 8 {
		t.Fatalf("len = %d, want 8", rb.Len())
	}
	if rb.Free() != 7 {
		t.Fatalf("free = %d, want 7", rb.Free())
	}
}

func TestGrowthLimit(t *testing.T) {
	rb := NewWithLimit(8, 32)
	if err := rb.Append(seq(0, 20)); err != nil {
		t.Fatalf("append within limit: %v", err)
	}
	err := rb.Append(seq(0, 20))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if rb.Len() != 20 {
		t.Fatalf("failed append modified buffer: len=%d", rb.Len())
	}
}

func TestGrowthClampedToLimit(t *testing.T) {
	rb := NewWithLimit(1024, 1500)
	if err := rb.Append(seq(0, 1200)); err != nil {
		t.Fatalf("append under a non power of two limit: %v", err)
	}
	if rb.Cap() != 1500 {
		t.Fatalf("cap = %d, want 1500", rb.Cap())
	}
	if err := rb.Append(seq(0, 299)); err != nil {
		t.Fatalf("append up to limit-1: %v", err)
	}
	if err := rb.Append([]byte{1}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	got, _ := rb.Consume(1200)
	if !bytes.Equal(got, seq(0, 1200)) {
		t.Fatal("content lost while growing to the limit")
	}
}

func TestConsumeTooMuch(t *testing.T) {
	rb := New(8)
	_ = rb.Append([]byte{1, 2})
	if _, err := rb.Consume(3); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestConsumeReturnsIndependentCopy(t *testing.T) {
	rb := New(8)
	_ = rb.Append([]byte{1, 2, 3})
	out, _ := rb.Consume(3)
	_ = rb.Append([]byte{9, 9, 9})
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("consumed slice aliased storage: %v", out)
	}
}

func TestReset(t *testing.T) {
	rb := New(8)
	_ = rb.Append([]byte{1, 2, 3})
	rb.Reset()
	if rb.Len() != 0 {
		t.Fatalf("len after reset = %d", rb.Len())
	}
}
