package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func mustDecode(t *testing.T, b []byte) (uint64, []byte) {
	t.Helper()
	gen, p, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return gen, p
}

func TestRoundTripEmptyAndNonEmpty(t *testing.T) {
	cases := []struct {
		gen     uint64
		payload []byte
	}{
		{0, nil},
		{42, []byte("hello")},
		{math.MaxUint64, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		gen, p := mustDecode(t, Encode(tc.gen, tc.payload))
		if gen != tc.gen {
			t.Fatalf("gen mismatch: got %d want %d", gen, tc.gen)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := append(Encode(7, []byte("x")), 0xDE, 0xAD)
	if _, _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(1, []byte("abc"))

	cases := map[string]func([]byte) []byte{
		"bad_magic":   func(b []byte) []byte { b[0] = 'X'; return b },
		"bad_version": func(b []byte) []byte { b[4] = version + 1; return b },
		"bad_kind":    func(b []byte) []byte { b[5] = kindEntry + 1; return b },
		"vlen_beyond": func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[14:18], uint32(len("abc")+1))
			return b
		},
		"truncated": func(b []byte) []byte { return b[:len(b)-1] },
		"short":     func(b []byte) []byte { return b[:hdrLen-1] },
		"foreign":   func([]byte) []byte { return []byte("plain value written by someone else") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := mutate(append([]byte(nil), enc...))
			if _, _, err := Decode(b); err != ErrCorrupt {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestZeroCopyPayload(t *testing.T) {
	enc := Encode(1, []byte("Z"))
	_, p := mustDecode(t, enc)
	p[0] = 'Q'
	_, p2 := mustDecode(t, enc)
	if p2[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
