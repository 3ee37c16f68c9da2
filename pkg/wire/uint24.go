// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements the exact byte layout of the BIOS-BMC mailbox
// header and queue entry header: packed, little-endian structures with
// a 24-bit field width that has no native Go integer type.
package wire

import "encoding/binary"

// Uint24 is a 24-bit unsigned little-endian integer value, as used by the
// current revision of the circular buffer header for QueueSize,
// BmcReadPtr and BiosWritePtr.
type Uint24 [3]byte

// Uint32 returns the value widened to a uint32.
func (v Uint24) Uint32() uint32 {
	var b [4]byte
	copy(b[:3], v[:])
	return binary.LittleEndian.Uint32(b[:])
}

// PutUint24 sets v from a uint32, truncating silently to 24 bits.
//
// Callers are expected to have already validated that value fits in 24
// bits; queue sizes and ring offsets in this protocol never approach
// that limit.
func PutUint24(value uint32) Uint24 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	var v Uint24
	copy(v[:], b[:3])
	return v
}
