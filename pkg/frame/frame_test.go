package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeHeaderCountsItself(t *testing.T) {
	buf, err := Encode([]byte("ABCD"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x08, 'A', 'B', 'C', 'D'}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got % x want % x", buf, want)
	}
}

func TestEncodeEmptyPayload(t *testing.T) {
	buf, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(buf, []byte{0, 0, 0, 4}) {
		t.Fatalf("got % x", buf)
	}
}

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	if err := Write(&out, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(out.Bytes(), []byte{0, 0, 0, 6, 'h', 'i'}) {
		t.Fatalf("got % x", out.Bytes())
	}
}

func TestPackMatchesEncode(t *testing.T) {
	payload := []byte("66666666666666666666666666" + "42")
	want, _ := Encode(payload)
	p := Pack(payload)
	if p.Length != len(payload) {
		t.Fatalf("length = %d", p.Length)
	}
	got, err := p.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("pack mismatch")
	}
}

func TestLimitsCheck(t *testing.T) {
	limits := Limits{MaxFrameBytes: 64}
	cases := []struct {
		length uint32
		want   error
	}{
		{0, ErrFrameTooShort},
		{3, ErrFrameTooShort},
		{4, nil},
		{64, nil},
		{65, ErrFrameTooLarge},
	}
	for _, tc := range cases {
		err := limits.Check(tc.length)
		if tc.want == nil && err != nil {
			t.Errorf("length %d: unexpected error %v", tc.length, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("length %d: expected %v, got %v", tc.length, tc.want, err)
		}
	}
}

func TestLimitsUnbounded(t *testing.T) {
	if err := (Limits{}).Check(1 << 31); err != nil {
		t.Fatalf("unbounded limits rejected length: %v", err)
	}
}
