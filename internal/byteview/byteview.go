// Package byteview is the lowest layer of the analyzer: a read-only,
// bounds-checked random-access window over an installer's raw bytes.
// The PE and NSIS layers read through a View rather than holding their
// own slice math, so an out-of-range read there surfaces as the same
// io error instead of a panic; the MSI and ZIP layers hand the raw
// bytes to mscfb and archive/zip instead.
package byteview

import (
	"encoding/binary"
	"fmt"
)

// View is a read-only window onto a contiguous byte range. The zero
// value is not usable; construct one with New or Sub.
type View struct {
	data []byte
}

// New wraps a byte slice as the root view over the whole file.
func New(data []byte) View {
	return View{data: data}
}

// Len returns the number of bytes in the view.
func (v View) Len() int {
	return len(v.data)
}

// Bytes returns the view's underlying bytes. Callers must not mutate
// the returned slice.
func (v View) Bytes() []byte {
	return v.data
}

// Sub returns the sub-view [offset, offset+length), or an error if the
// range falls outside the view.
func (v View) Sub(offset, length int) (View, error) {
	if offset < 0 || length < 0 || offset > len(v.data) || length > len(v.data)-offset {
		return View{}, fmt.Errorf("byteview: range [%d, %d) out of bounds for view of length %d", offset, offset+length, len(v.data))
	}
	return View{data: v.data[offset : offset+length]}, nil
}

// Slice returns the sub-view [offset, len(v)), or an error if offset is
// out of range.
func (v View) Slice(offset int) (View, error) {
	if offset < 0 || offset > len(v.data) {
		return View{}, fmt.Errorf("byteview: offset %d out of bounds for view of length %d", offset, len(v.data))
	}
	return View{data: v.data[offset:]}, nil
}

// ReadU8 reads a single byte at offset.
func (v View) ReadU8(offset int) (uint8, error) {
	if offset < 0 || offset+1 > len(v.data) {
		return 0, fmt.Errorf("byteview: ReadU8 at %d out of bounds for view of length %d", offset, len(v.data))
	}
	return v.data[offset], nil
}

// ReadU16 reads a little-endian uint16 at offset.
func (v View) ReadU16(offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(v.data) {
		return 0, fmt.Errorf("byteview: ReadU16 at %d out of bounds for view of length %d", offset, len(v.data))
	}
	return binary.LittleEndian.Uint16(v.data[offset:]), nil
}

// ReadU32 reads a little-endian uint32 at offset.
func (v View) ReadU32(offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(v.data) {
		return 0, fmt.Errorf("byteview: ReadU32 at %d out of bounds for view of length %d", offset, len(v.data))
	}
	return binary.LittleEndian.Uint32(v.data[offset:]), nil
}

// ReadU64 reads a little-endian uint64 at offset.
func (v View) ReadU64(offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(v.data) {
		return 0, fmt.Errorf("byteview: ReadU64 at %d out of bounds for view of length %d", offset, len(v.data))
	}
	return binary.LittleEndian.Uint64(v.data[offset:]), nil
}

// ReadBytes returns a copy of length bytes starting at offset.
func (v View) ReadBytes(offset, length int) ([]byte, error) {
	sub, err := v.Sub(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, sub.data)
	return out, nil
}

// ReadCString reads a NUL-terminated ASCII/UTF-8 string starting at
// offset, not including the terminator. If no NUL byte is found before
// the end of the view, the remainder of the view is returned.
func (v View) ReadCString(offset int) (string, error) {
	if offset < 0 || offset > len(v.data) {
		return "", fmt.Errorf("byteview: ReadCString at %d out of bounds for view of length %d", offset, len(v.data))
	}
	end := offset
	for end < len(v.data) && v.data[end] != 0 {
		end++
	}
	return string(v.data[offset:end]), nil
}
