// Package bytecodec extracts fixed width integers from byte buffers with an
// explicit byte order and bounds checking.
//
// ESE pages and records are little-endian, but keys (long value identifiers,
// segment offsets, space tree keys) are stored big-endian, so the order is a
// per call argument.
package bytecodec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when offset+width runs past the end of the buffer.
var ErrOutOfBounds = errors.New("value out of bounds")

func check(buf []byte, offset, width int) error {
	if offset < 0 || offset > len(buf)-width {
		return fmt.Errorf("reading %d bytes at offset %d of %d byte buffer: %w", width, offset, len(buf), ErrOutOfBounds)
	}
	return nil
}

// Uint8 returns the byte at offset.
func Uint8(buf []byte, offset int) (uint8, error) {
	if err := check(buf, offset, 1); err != nil {
		return 0, err
	}
	return buf[offset], nil
}

// Uint16 reads a 16-bit value at offset.
func Uint16(buf []byte, offset int, order binary.ByteOrder) (uint16, error) {
	if err := check(buf, offset, 2); err != nil {
		return 0, err
	}
	return order.Uint16(buf[offset:]), nil
}

// Uint32 reads a 32-bit value at offset.
func Uint32(buf []byte, offset int, order binary.ByteOrder) (uint32, error) {
	if err := check(buf, offset, 4); err != nil {
		return 0, err
	}
	return order.Uint32(buf[offset:]), nil
}

// Uint64 reads a 64-bit value at offset.
func Uint64(buf []byte, offset int, order binary.ByteOrder) (uint64, error) {
	if err := check(buf, offset, 8); err != nil {
		return 0, err
	}
	return order.Uint64(buf[offset:]), nil
}

// Slice returns buf[offset:offset+size] after checking it lies within buf.
func Slice(buf []byte, offset, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d: %w", size, ErrOutOfBounds)
	}
	if err := check(buf, offset, size); err != nil {
		return nil, err
	}
	return buf[offset : offset+size], nil
}

// Reader walks a buffer sequentially, remembering the first error so a run of
// fixed fields can be decoded without checking every call.
type Reader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
	err   error
}

// NewReader starts reading buf at offset.
func NewReader(buf []byte, offset int, order binary.ByteOrder) *Reader {
	return &Reader{buf: buf, off: offset, order: order}
}

// Offset is the position of the next read.
func (r *Reader) Offset() int { return r.off }

// Err reports the first out of bounds read, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) Uint8() uint8 {
	if r.err != nil {
		return 0
	}
	var v uint8
	if v, r.err = Uint8(r.buf, r.off); r.err == nil {
		r.off++
	}
	return v
}

func (r *Reader) Uint16() uint16 {
	if r.err != nil {
		return 0
	}
	var v uint16
	if v, r.err = Uint16(r.buf, r.off, r.order); r.err == nil {
		r.off += 2
	}
	return v
}

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	if v, r.err = Uint32(r.buf, r.off, r.order); r.err == nil {
		r.off += 4
	}
	return v
}

func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	if v, r.err = Uint64(r.buf, r.off, r.order); r.err == nil {
		r.off += 8
	}
	return v
}

// Skip advances n bytes without reading them.
func (r *Reader) Skip(n int) {
	if r.err != nil {
		return
	}
	if err := check(r.buf, r.off, n); err != nil {
		r.err = err
		return
	}
	r.off += n
}
