package leb128

import "testing"

func TestReadUnsigned(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"zero", []byte{0x00}, 0},
		{"one byte", []byte{0x7f}, 127},
		{"two bytes", []byte{0x80, 0x01}, 128},
		{"624485 spec example", []byte{0xE5, 0x8E, 0x26}, 624485},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in)
			got, err := r.ReadUnsigned(32)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadSigned(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int64
	}{
		{"zero", []byte{0x00}, 0},
		{"-1", []byte{0x7f}, -1},
		{"-624485", []byte{0x9b, 0xf1, 0x59}, -624485},
		{"127", []byte{0xff, 0x00}, 127},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.in)
			got, err := r.ReadSigned(32)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadUnsignedOverflow(t *testing.T) {
	// Seven bytes is too many for a 32-bit value (at most five are allowed).
	in := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	r := NewReader(in)
	if _, err := r.ReadUnsigned(32); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestReadString(t *testing.T) {
	in := []byte{0x03, 'a', 'b', 'c', 0xff}
	r := NewReader(in)
	s, err := r.ReadString()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "abc" {
		t.Fatalf("got %q", s)
	}
	if r.Pos() != 4 {
		t.Fatalf("expected cursor at 4, got %d", r.Pos())
	}
}

func TestSignExtend(t *testing.T) {
	if got := SignExtend8to32(0xff); got != -1 {
		t.Fatalf("got %d", got)
	}
	if got := SignExtend16to64(0x8000); got != -32768 {
		t.Fatalf("got %d", got)
	}
	if got := SignExtend32to64(0x80000000); got != -2147483648 {
		t.Fatalf("got %d", got)
	}
}

func TestRotate(t *testing.T) {
	for _, s := range []uint32{0, 1, 5, 31, 32, 37} {
		x := uint32(0xdeadbeef)
		if got := RotateRight32(RotateLeft32(x, s), s); got != x {
			t.Fatalf("rotate32 round-trip failed for shift %d: got %#x", s, got)
		}
	}
	for _, s := range []uint64{0, 1, 5, 63, 64, 70} {
		x := uint64(0x0123456789abcdef)
		if got := RotateRight64(RotateLeft64(x, s), s); got != x {
			t.Fatalf("rotate64 round-trip failed for shift %d: got %#x", s, got)
		}
	}
}
