// Package codec packs typed records into fixed-layout storage buffers.
//
// Every record type declares an exact packed length; writers fail when a field
// would cross the declared capacity and readers fail on truncated or malformed
// input instead of yielding partial values.
package codec

import (
	"encoding/binary"
	"errors"

	"github.com/scalarorg/bridge-core/pkg/types"
)

var (
	ErrInvalidData  = errors.New("codec: invalid data")
	ErrDataTooSmall = errors.New("codec: data too small")
	ErrOverflow     = errors.New("codec: write exceeds capacity")
)

// Writer packs fields into a caller-provided buffer at increasing offsets.
// The first failed write latches the error; subsequent writes are no-ops.
type Writer struct {
	buf []byte
	off int
	err error
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int { return w.off }

func (w *Writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.off+n > len(w.buf) {
		w.err = ErrOverflow
		return nil
	}
	out := w.buf[w.off : w.off+n]
	w.off += n
	return out
}

func (w *Writer) WriteUint8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteInt8(v int8) {
	w.WriteUint8(uint8(v))
}

func (w *Writer) WriteUint32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *Writer) WriteUint64(v uint64) {
	if b := w.reserve(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *Writer) WriteAddress(a types.Address) {
	if b := w.reserve(types.AddressLen); b != nil {
		copy(b, a[:])
	}
}

// WriteBytes copies v into a fixed window of capacity bytes, zero-padding the
// tail. The window always advances by exactly capacity.
func (w *Writer) WriteBytes(v []byte, capacity int) {
	if len(v) > capacity {
		if w.err == nil {
			w.err = ErrOverflow
		}
		return
	}
	if b := w.reserve(capacity); b != nil {
		n := copy(b, v)
		for i := n; i < capacity; i++ {
			b[i] = 0
		}
	}
}

// Reader unpacks fields from a storage buffer at increasing offsets.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrDataTooSmall
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *Reader) ReadUint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) ReadBool() bool {
	switch r.ReadUint8() {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = ErrInvalidData
		}
		return false
	}
}

func (r *Reader) ReadInt8() int8 {
	return int8(r.ReadUint8())
}

func (r *Reader) ReadUint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) ReadUint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *Reader) ReadAddress() types.Address {
	var a types.Address
	if b := r.take(types.AddressLen); b != nil {
		copy(a[:], b)
	}
	return a
}

// ReadBytes consumes a fixed window of capacity bytes and returns a copy of
// the first length bytes. Fails when length exceeds the window.
func (r *Reader) ReadBytes(length, capacity int) []byte {
	if length > capacity {
		if r.err == nil {
			r.err = ErrInvalidData
		}
		return nil
	}
	b := r.take(capacity)
	if b == nil {
		return nil
	}
	out := make([]byte, length)
	copy(out, b[:length])
	return out
}
