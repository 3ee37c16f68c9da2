// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
)

// EntryHeaderSize is the exact on-wire size of QueueEntryHeader.
const EntryHeaderSize = 6

// QueueEntryHeader precedes every error-log record in the ring queue.
type QueueEntryHeader struct {
	SequenceID     uint16
	EntrySize      uint16
	Checksum       uint8
	RdeCommandType uint8
}

// MarshalBinary encodes the header as EntryHeaderSize bytes.
func (h QueueEntryHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, EntryHeaderSize)
	binary.LittleEndian.PutUint16(b[0x00:], h.SequenceID)
	binary.LittleEndian.PutUint16(b[0x02:], h.EntrySize)
	b[0x04] = h.Checksum
	b[0x05] = h.RdeCommandType
	return b, nil
}

// UnmarshalBinary decodes b into the header. b must be exactly
// EntryHeaderSize bytes.
func (h *QueueEntryHeader) UnmarshalBinary(b []byte) error {
	if len(b) != EntryHeaderSize {
		return fmt.Errorf("wire: entry header short read, got %d want %d", len(b), EntryHeaderSize)
	}
	h.SequenceID = binary.LittleEndian.Uint16(b[0x00:])
	h.EntrySize = binary.LittleEndian.Uint16(b[0x02:])
	h.Checksum = b[0x04]
	h.RdeCommandType = b[0x05]
	return nil
}

// XORChecksum computes the running XOR over every byte of header and
// payload; a well-formed entry XORs to zero (I5).
func XORChecksum(headerBytes, payload []byte) uint8 {
	var sum uint8
	for _, b := range headerBytes {
		sum ^= b
	}
	for _, b := range payload {
		sum ^= b
	}
	return sum
}
