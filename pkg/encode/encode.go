// Package encode holds the little-endian integer helpers used when composing
// derivation seeds and instruction payloads.
package encode

import "encoding/binary"

func Uint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func Uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func Int64LE(v int64) []byte {
	return Uint64LE(uint64(v))
}

// Uint128LE encodes the low/high halves of a 128-bit seed value.
func Uint128LE(lo, hi uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], lo)
	binary.LittleEndian.PutUint64(b[8:], hi)
	return b
}
