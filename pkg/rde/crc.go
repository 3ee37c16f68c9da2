// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rde

// crcDivisor is the IEEE 802.3 CRC-32 polynomial in reflected form, same
// constant BIOS uses to checksum dictionary transfers.
const crcDivisor uint32 = 0xedb88320

// crcInit is the running CRC's value at the start of a dictionary transfer:
// every Start/StartAndEnd frame resets the CRC to it before folding in the
// frame's data.
const crcInit uint32 = 0xFFFFFFFF

func buildCRCTable() [256]uint32 {
	var table [256]uint32
	for i := range table {
		rem := uint32(i)
		for k := 0; k < 8; k++ {
			if rem&1 != 0 {
				rem = (rem >> 1) ^ crcDivisor
			} else {
				rem = rem >> 1
			}
		}
		table[i] = rem
	}
	return table
}

// updateCRC folds stream into crc one byte at a time, per the table-driven
// IEEE 802.3 CRC-32 algorithm. Only the data bytes of a multipart frame are
// ever passed here: header bytes and the trailing checksum itself are
// excluded by the caller (see DESIGN.md's note on checksum scope).
func updateCRC(table *[256]uint32, crc uint32, stream []byte) uint32 {
	for _, b := range stream {
		crc = table[(crc^uint32(b))&0xff] ^ (crc >> 8)
	}
	return crc
}

// finalChecksum is the CRC-32 value as transmitted on the wire.
func finalChecksum(crc uint32) uint32 {
	return crc ^ 0xFFFFFFFF
}
