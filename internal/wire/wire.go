// Package wire frames cache entries before they reach a backend so that
// foreign or truncated values are recognised and generations can be checked.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1

	hdrLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("throughcache: corrupt entry")
	magic4     = [...]byte{'T', 'H', 'R', 'U'}
)

// Encode frames payload:
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(gen uint64, payload []byte) []byte {
	b := make([]byte, hdrLen+len(payload))
	copy(b[:4], magic4[:])
	b[4] = version
	b[5] = kindEntry
	binary.BigEndian.PutUint64(b[6:14], gen)
	binary.BigEndian.PutUint32(b[14:18], uint32(len(payload)))
	copy(b[hdrLen:], payload)
	return b
}

// Decode validates the frame strictly (no trailing bytes) and returns the
// generation and a payload slice aliasing b.
func Decode(b []byte) (gen uint64, payload []byte, err error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}
	gen = binary.BigEndian.Uint64(b[6:14])
	vlen := uint64(binary.BigEndian.Uint32(b[14:18]))
	if vlen != uint64(len(b)-hdrLen) {
		return 0, nil, ErrCorrupt
	}
	return gen, b[hdrLen:], nil
}
