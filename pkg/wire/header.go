// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the exact on-wire size of CircularBufferHeader, in both
// the legacy and current protocol revisions.
const HeaderSize = 0x30

// Protocol versions for the circular buffer header, keyed off
// BmcInterfaceVersion. The wire width of QueueSize, BmcReadPtr and
// BiosWritePtr depends on which version is in effect; see LayoutFor for
// the offsets of each.
const (
	// InterfaceVersionLegacyU16 uses 16-bit QueueSize/BmcReadPtr/BiosWritePtr
	// fields, matching the earliest shipped revision of this header.
	InterfaceVersionLegacyU16 uint32 = 1

	// InterfaceVersionCurrentU24 uses 24-bit QueueSize/BmcReadPtr/BiosWritePtr
	// fields. This is the latest revision and the one new deployments
	// should use.
	InterfaceVersionCurrentU24 uint32 = 2
)

// CircularBufferHeader is the in-memory representation of the 48-byte
// packed header at offset 0 of the mailbox region. Pointer-width fields
// (QueueSize, BmcReadPtr, BiosWritePtr) are held as uint32 regardless of
// their on-wire width.
type CircularBufferHeader struct {
	BmcInterfaceVersion  uint32
	BiosInterfaceVersion uint32
	MagicNumber          [4]uint32
	QueueSize            uint32
	UeRegionSize         uint16
	BmcFlags             uint32
	BmcReadPtr           uint32
	BiosFlags            uint32
	BiosWritePtr         uint32
}

// Equal compares two headers ignoring the reserved padding bytes, which
// are not part of this struct at all (P3).
func (h CircularBufferHeader) Equal(other CircularBufferHeader) bool {
	if h.BmcInterfaceVersion != other.BmcInterfaceVersion ||
		h.BiosInterfaceVersion != other.BiosInterfaceVersion ||
		h.MagicNumber != other.MagicNumber ||
		h.QueueSize != other.QueueSize ||
		h.UeRegionSize != other.UeRegionSize ||
		h.BmcFlags != other.BmcFlags ||
		h.BmcReadPtr != other.BmcReadPtr ||
		h.BiosFlags != other.BiosFlags ||
		h.BiosWritePtr != other.BiosWritePtr {
		return false
	}
	return true
}

// Layout describes the byte offsets used to encode/decode a header for a
// given protocol version. Exported so callers that need to patch a
// single field in place (CircularBuffer.UpdateReadPtr, UpdateBmcFlags)
// can do so without re-marshaling the whole header.
type Layout struct {
	QueueSizeOffset    int
	QueueSizeWidth     int
	UeRegionSizeOffset int
	BmcFlagsOffset     int
	BmcReadPtrOffset   int
	BmcReadPtrWidth    int
	BiosFlagsOffset    int
	BiosWritePtrOffset int
	BiosWritePtrWidth  int
}

// LayoutFor returns the field layout for the given BmcInterfaceVersion,
// or an error if the version is not recognized.
func LayoutFor(version uint32) (Layout, error) {
	switch version {
	case InterfaceVersionLegacyU16:
		return Layout{
			QueueSizeOffset:    0x18,
			QueueSizeWidth:     2,
			UeRegionSizeOffset: 0x1a,
			BmcFlagsOffset:     0x1c,
			BmcReadPtrOffset:   0x20,
			BmcReadPtrWidth:    2,
			BiosFlagsOffset:    0x28,
			BiosWritePtrOffset: 0x2c,
			BiosWritePtrWidth:  2,
		}, nil
	case InterfaceVersionCurrentU24:
		return Layout{
			QueueSizeOffset:    0x18,
			QueueSizeWidth:     3,
			UeRegionSizeOffset: 0x1b,
			BmcFlagsOffset:     0x1d,
			BmcReadPtrOffset:   0x21,
			BmcReadPtrWidth:    3,
			BiosFlagsOffset:    0x28,
			BiosWritePtrOffset: 0x2c,
			BiosWritePtrWidth:  3,
		}, nil
	default:
		return Layout{}, fmt.Errorf("wire: unknown bmc interface version %d", version)
	}
}

// PutWidth writes value into b at offset using the given field width (2,
// 3 or 4 bytes), little-endian.
func PutWidth(b []byte, offset, width int, value uint32) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(b[offset:], uint16(value))
	case 3:
		v := PutUint24(value)
		copy(b[offset:offset+3], v[:])
	case 4:
		binary.LittleEndian.PutUint32(b[offset:], value)
	default:
		panic(fmt.Sprintf("wire: unsupported field width %d", width))
	}
}

// GetWidth reads a little-endian value of the given field width (2, 3
// or 4 bytes) from b at offset.
func GetWidth(b []byte, offset, width int) uint32 {
	switch width {
	case 2:
		return uint32(binary.LittleEndian.Uint16(b[offset:]))
	case 3:
		var v Uint24
		copy(v[:], b[offset:offset+3])
		return v.Uint32()
	case 4:
		return binary.LittleEndian.Uint32(b[offset:])
	default:
		panic(fmt.Sprintf("wire: unsupported field width %d", width))
	}
}

// MarshalHeader encodes h as HeaderSize bytes, using the field widths
// dictated by h.BmcInterfaceVersion.
func MarshalHeader(h CircularBufferHeader) ([]byte, error) {
	lay, err := LayoutFor(h.BmcInterfaceVersion)
	if err != nil {
		return nil, err
	}

	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0x00:], h.BmcInterfaceVersion)
	binary.LittleEndian.PutUint32(b[0x04:], h.BiosInterfaceVersion)
	for i, word := range h.MagicNumber {
		binary.LittleEndian.PutUint32(b[0x08+4*i:], word)
	}
	PutWidth(b, lay.QueueSizeOffset, lay.QueueSizeWidth, h.QueueSize)
	binary.LittleEndian.PutUint16(b[lay.UeRegionSizeOffset:], h.UeRegionSize)
	binary.LittleEndian.PutUint32(b[lay.BmcFlagsOffset:], h.BmcFlags)
	PutWidth(b, lay.BmcReadPtrOffset, lay.BmcReadPtrWidth, h.BmcReadPtr)
	binary.LittleEndian.PutUint32(b[lay.BiosFlagsOffset:], h.BiosFlags)
	PutWidth(b, lay.BiosWritePtrOffset, lay.BiosWritePtrWidth, h.BiosWritePtr)
	return b, nil
}

// UnmarshalHeader decodes a HeaderSize byte slice into a CircularBufferHeader.
// The protocol version is read from the first 4 bytes (BmcInterfaceVersion)
// to select the field widths for the rest of the header.
func UnmarshalHeader(b []byte) (CircularBufferHeader, error) {
	if len(b) < HeaderSize {
		return CircularBufferHeader{}, fmt.Errorf("wire: header short read, got %d want %d", len(b), HeaderSize)
	}

	var h CircularBufferHeader
	h.BmcInterfaceVersion = binary.LittleEndian.Uint32(b[0x00:])
	h.BiosInterfaceVersion = binary.LittleEndian.Uint32(b[0x04:])

	lay, err := LayoutFor(h.BmcInterfaceVersion)
	if err != nil {
		return CircularBufferHeader{}, err
	}

	for i := range h.MagicNumber {
		h.MagicNumber[i] = binary.LittleEndian.Uint32(b[0x08+4*i:])
	}
	h.QueueSize = GetWidth(b, lay.QueueSizeOffset, lay.QueueSizeWidth)
	h.UeRegionSize = binary.LittleEndian.Uint16(b[lay.UeRegionSizeOffset:])
	h.BmcFlags = binary.LittleEndian.Uint32(b[lay.BmcFlagsOffset:])
	h.BmcReadPtr = GetWidth(b, lay.BmcReadPtrOffset, lay.BmcReadPtrWidth)
	h.BiosFlags = binary.LittleEndian.Uint32(b[lay.BiosFlagsOffset:])
	h.BiosWritePtr = GetWidth(b, lay.BiosWritePtrOffset, lay.BiosWritePtrWidth)
	return h, nil
}
