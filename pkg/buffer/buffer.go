// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer implements the BIOS-BMC shared-memory mailbox protocol:
// header caching, pointer updates, flag acknowledgement, wraparound
// reads of the error-log ring, UE-region reads, entry checksum
// validation, and batch drains.
package buffer

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/bytespan"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/memregion"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/wire"
)

// Entry is one decoded (header, payload) pair read off the error-log ring.
type Entry struct {
	Header  wire.QueueEntryHeader
	Payload []byte
}

// CircularBuffer owns a ByteRegion and a cached copy of its header, and
// implements the mailbox protocol on top of it.
type CircularBuffer struct {
	region memregion.ByteRegion
	cached wire.CircularBufferHeader

	// configuredQueueSize/configuredUeRegionSize are the build-time
	// values this BMC was configured with. Every access revalidates the
	// cached header's QueueSize/UeRegionSize against these (I4); a
	// mismatch means BIOS reinitialized the region out from under us.
	configuredQueueSize   uint32
	configuredUeRegionSize uint16

	// sessionMagic is the magic number observed the first time this
	// session saw the header (via Initialize or the first
	// ReadBufferHeader). Every later ReadBufferHeader revalidates
	// against it (I1); a mismatch means BIOS reset the region.
	sessionMagic    [4]uint32
	sessionMagicSet bool

	telemetry *telemetry.Telemetry
}

// New creates a CircularBuffer over region, configured for the given
// queue and UE region sizes. Callers must still call Initialize (on
// first bring-up) or ReadBufferHeader (to attach to an already
// initialized region) before using any other method.
func New(region memregion.ByteRegion, configuredQueueSize uint32, configuredUeRegionSize uint16, tel *telemetry.Telemetry) *CircularBuffer {
	return &CircularBuffer{
		region:                 region,
		configuredQueueSize:    configuredQueueSize,
		configuredUeRegionSize: configuredUeRegionSize,
		telemetry:              tel,
	}
}

// Initialize zeroes [0, queueSize) of the region and writes a fresh
// header built from the given parameters. bios_flags/bios_write_ptr
// and bmc_flags/bmc_read_ptr all start at zero.
func (b *CircularBuffer) Initialize(bmcInterfaceVersion, queueSize uint32, ueRegionSize uint16, magic [4]uint32) error {
	if int(queueSize) > b.region.Size() {
		return fmt.Errorf("%w: region size %d, queue size %d", ErrRegionTooSmall, b.region.Size(), queueSize)
	}

	zero := make([]byte, queueSize)
	written, err := b.region.Write(0, zero)
	if err != nil {
		return fmt.Errorf("buffer: zero-fill failed: %w", err)
	}
	if written != len(zero) {
		log.Errorf("buffer: zero-fill wrote only %d of %d bytes", written, len(zero))
		return fmt.Errorf("%w: zero-fill wrote %d of %d", ErrShortWrite, written, len(zero))
	}

	header := wire.CircularBufferHeader{
		BmcInterfaceVersion: bmcInterfaceVersion,
		QueueSize:           queueSize,
		UeRegionSize:        ueRegionSize,
		MagicNumber:         magic,
	}
	encoded, err := wire.MarshalHeader(header)
	if err != nil {
		return fmt.Errorf("buffer: marshal header: %w", err)
	}
	written, err = b.region.Write(0, encoded)
	if err != nil {
		return fmt.Errorf("buffer: header write failed: %w", err)
	}
	if written != len(encoded) {
		log.Errorf("buffer: header write wrote only %d of %d bytes", written, len(encoded))
		return fmt.Errorf("%w: header write %d of %d", ErrShortWrite, written, len(encoded))
	}

	b.cached = header
	b.configuredQueueSize = queueSize
	b.configuredUeRegionSize = ueRegionSize
	b.sessionMagic = magic
	b.sessionMagicSet = true
	return nil
}

// ReadBufferHeader reads the 48-byte header at offset 0 and replaces the
// cached header.
func (b *CircularBuffer) ReadBufferHeader() error {
	raw, err := b.region.Read(0, wire.HeaderSize)
	if err != nil {
		return fmt.Errorf("buffer: header read failed: %w", err)
	}
	if len(raw) != wire.HeaderSize {
		return fmt.Errorf("%w: header read got %d want %d", ErrShortRead, len(raw), wire.HeaderSize)
	}
	h, err := wire.UnmarshalHeader(raw)
	if err != nil {
		return fmt.Errorf("buffer: unmarshal header: %w", err)
	}

	if !b.sessionMagicSet {
		b.sessionMagic = h.MagicNumber
		b.sessionMagicSet = true
	} else if h.MagicNumber != b.sessionMagic {
		return fmt.Errorf("%w: session magic %08x, header magic %08x", ErrMagicMismatch, b.sessionMagic, h.MagicNumber)
	}

	b.cached = h
	return nil
}

// GetCachedHeader returns the last header read or written.
func (b *CircularBuffer) GetCachedHeader() wire.CircularBufferHeader {
	return b.cached
}

// UpdateReadPtr writes newPtr into bmc_read_ptr (at the width dictated
// by the cached header's protocol version) and updates the cache.
func (b *CircularBuffer) UpdateReadPtr(newPtr uint32) error {
	lay, err := wire.LayoutFor(b.cached.BmcInterfaceVersion)
	if err != nil {
		return err
	}
	buf := make([]byte, lay.BmcReadPtrWidth)
	wire.PutWidth(buf, 0, lay.BmcReadPtrWidth, newPtr)
	written, err := b.region.Write(lay.BmcReadPtrOffset, buf)
	if err != nil {
		return fmt.Errorf("buffer: bmc_read_ptr write failed: %w", err)
	}
	if written != len(buf) {
		return fmt.Errorf("%w: bmc_read_ptr write %d of %d", ErrShortWrite, written, len(buf))
	}
	b.cached.BmcReadPtr = newPtr
	return nil
}

// UpdateBmcFlags writes newFlags into bmc_flags and updates the cache.
func (b *CircularBuffer) UpdateBmcFlags(newFlags uint32) error {
	lay, err := wire.LayoutFor(b.cached.BmcInterfaceVersion)
	if err != nil {
		return err
	}
	buf := make([]byte, 4)
	wire.PutWidth(buf, 0, 4, newFlags)
	written, err := b.region.Write(lay.BmcFlagsOffset, buf)
	if err != nil {
		return fmt.Errorf("buffer: bmc_flags write failed: %w", err)
	}
	if written != len(buf) {
		return fmt.Errorf("%w: bmc_flags write %d of %d", ErrShortWrite, written, len(buf))
	}
	b.cached.BmcFlags = newFlags
	return nil
}

// GetQueueOffset returns the absolute offset of the ring queue region,
// validating (I4) that the cached header's sizes still match this
// CircularBuffer's configured values.
func (b *CircularBuffer) GetQueueOffset() (int, error) {
	if err := b.checkSizeDrift(); err != nil {
		return 0, err
	}
	return wire.HeaderSize + int(b.cached.UeRegionSize), nil
}

// GetMaxOffset returns the size of the ring queue region (the modulus
// for wraparound reads), validating (I4).
func (b *CircularBuffer) GetMaxOffset() (int, error) {
	if err := b.checkSizeDrift(); err != nil {
		return 0, err
	}
	return int(b.cached.QueueSize) - int(b.cached.UeRegionSize) - wire.HeaderSize, nil
}

func (b *CircularBuffer) checkSizeDrift() error {
	if b.cached.QueueSize != b.configuredQueueSize || b.cached.UeRegionSize != b.configuredUeRegionSize {
		return fmt.Errorf("%w: configured queue=%d ue=%d, header queue=%d ue=%d",
			ErrSizeDrift, b.configuredQueueSize, b.configuredUeRegionSize, b.cached.QueueSize, b.cached.UeRegionSize)
	}
	return nil
}

// WraparoundRead reads length bytes starting at relativeOffset within
// the ring, wrapping at maxOffset, and advances bmc_read_ptr to the new
// position (P4, P5).
func (b *CircularBuffer) WraparoundRead(relativeOffset, length int) ([]byte, error) {
	maxOffset, err := b.GetMaxOffset()
	if err != nil {
		return nil, err
	}
	queueOffset, err := b.GetQueueOffset()
	if err != nil {
		return nil, err
	}
	if relativeOffset < 0 || relativeOffset >= maxOffset {
		return nil, fmt.Errorf("%w: relative offset %d outside [0, %d)", ErrInvariantViolation, relativeOffset, maxOffset)
	}
	if length < 0 || length > maxOffset {
		return nil, fmt.Errorf("%w: length %d exceeds max offset %d", ErrInvariantViolation, length, maxOffset)
	}

	tailLen := maxOffset - relativeOffset
	if tailLen > length {
		tailLen = length
	}

	spans := bytespan.Spans{{Offset: uint32(relativeOffset), Length: uint32(tailLen)}}
	out := make([]byte, 0, length)

	tail, err := b.region.Read(queueOffset+relativeOffset, tailLen)
	if err != nil {
		return nil, fmt.Errorf("buffer: wraparound tail read failed: %w", err)
	}
	if len(tail) != tailLen {
		return nil, fmt.Errorf("%w: wraparound tail read got %d want %d", ErrShortRead, len(tail), tailLen)
	}
	out = append(out, tail...)

	headLen := length - tailLen
	if headLen > 0 {
		spans = append(spans, bytespan.Span{Offset: 0, Length: uint32(headLen)})
		head, err := b.region.Read(queueOffset, headLen)
		if err != nil {
			return nil, fmt.Errorf("buffer: wraparound head read failed: %w", err)
		}
		if len(head) != headLen {
			return nil, fmt.Errorf("%w: wraparound head read got %d want %d", ErrShortRead, len(head), headLen)
		}
		out = append(out, head...)
	}

	newPtr := relativeOffset + length
	if newPtr >= maxOffset {
		newPtr -= maxOffset
	}
	if err := b.UpdateReadPtr(uint32(newPtr)); err != nil {
		return nil, err
	}

	log.Infof("buffer: wraparound read %s -> read_ptr=0x%x", spans, newPtr)
	return out, nil
}

// ReadEntryHeader reads the 6-byte QueueEntryHeader starting at the
// current bmc_read_ptr, advancing the pointer by EntryHeaderSize.
func (b *CircularBuffer) ReadEntryHeader() (wire.QueueEntryHeader, error) {
	raw, err := b.WraparoundRead(int(b.cached.BmcReadPtr), wire.EntryHeaderSize)
	if err != nil {
		return wire.QueueEntryHeader{}, err
	}
	var h wire.QueueEntryHeader
	if err := h.UnmarshalBinary(raw); err != nil {
		return wire.QueueEntryHeader{}, err
	}
	return h, nil
}

// ReadEntry reads one full (header, payload) entry starting at the
// current bmc_read_ptr, validating its XOR checksum (I5, P6).
func (b *CircularBuffer) ReadEntry() (Entry, error) {
	header, err := b.ReadEntryHeader()
	if err != nil {
		return Entry{}, err
	}
	payload, err := b.WraparoundRead(int(b.cached.BmcReadPtr), int(header.EntrySize))
	if err != nil {
		return Entry{}, err
	}

	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return Entry{}, err
	}
	if checksum := wire.XORChecksum(headerBytes, payload); checksum != 0 {
		return Entry{}, fmt.Errorf("%w: sequence_id=%d checksum=0x%x", ErrChecksum, header.SequenceID, checksum)
	}

	return Entry{Header: header, Payload: payload}, nil
}

// ReadErrorLogs refreshes the cached header and drains every entry
// between bmc_read_ptr and bios_write_ptr (P7).
func (b *CircularBuffer) ReadErrorLogs() ([]Entry, error) {
	if err := b.ReadBufferHeader(); err != nil {
		return nil, err
	}
	maxOffset, err := b.GetMaxOffset()
	if err != nil {
		return nil, err
	}

	readPtr := int(b.cached.BmcReadPtr)
	writePtr := int(b.cached.BiosWritePtr)
	if readPtr < 0 || readPtr > maxOffset || writePtr < 0 || writePtr > maxOffset {
		return nil, fmt.Errorf("%w: read_ptr=%d write_ptr=%d max_offset=%d", ErrInvariantViolation, readPtr, writePtr, maxOffset)
	}
	if readPtr == writePtr {
		return nil, nil
	}

	var totalBytes int
	if writePtr > readPtr {
		totalBytes = writePtr - readPtr
	} else {
		totalBytes = (maxOffset - readPtr) + writePtr
	}

	var entries []Entry
	var consumed int
	for consumed < totalBytes {
		entry, err := b.ReadEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		consumed += wire.EntryHeaderSize + len(entry.Payload)
	}

	if int(b.cached.BmcReadPtr) != writePtr {
		return nil, fmt.Errorf("%w: read_ptr=%d write_ptr=%d", ErrDrainIncomplete, b.cached.BmcReadPtr, writePtr)
	}

	if b.telemetry != nil {
		b.telemetry.DrainBytes.Observe(float64(consumed))
	}
	log.Infof("buffer: drained %d entries (%s)", len(entries), humanize.Bytes(uint64(consumed)))
	return entries, nil
}

// ReadUELogFromReservedRegion returns the UE reserved region's contents
// if BIOS has signaled a new UE record (toggled UESwitch), or nil
// otherwise. The caller is responsible for acknowledging by toggling
// the BMC's own UESwitch bit once the record has been processed (P10).
func (b *CircularBuffer) ReadUELogFromReservedRegion() ([]byte, error) {
	if err := b.ReadBufferHeader(); err != nil {
		return nil, err
	}
	if b.cached.UeRegionSize == 0 {
		return nil, nil
	}
	if (b.cached.BiosFlags^b.cached.BmcFlags)&wire.UESwitch == 0 {
		return nil, nil
	}

	raw, err := b.region.Read(wire.HeaderSize, int(b.cached.UeRegionSize))
	if err != nil {
		return nil, fmt.Errorf("buffer: UE region read failed: %w", err)
	}
	if len(raw) != int(b.cached.UeRegionSize) {
		return nil, fmt.Errorf("%w: UE region read got %d want %d", ErrShortRead, len(raw), b.cached.UeRegionSize)
	}

	if b.telemetry != nil {
		b.telemetry.UeDrains.Inc()
		b.telemetry.DrainBytes.Observe(float64(len(raw)))
	}
	return raw, nil
}

// CheckForOverflowAndAcknowledge refreshes the cached header and, if
// BIOS has signaled an overflow, flips the BMC's Overflow bit to
// acknowledge it. Acknowledgement is advisory only: it does not change
// drain behavior, and the dropped entries are not retransmitted.
func (b *CircularBuffer) CheckForOverflowAndAcknowledge() (bool, error) {
	if err := b.ReadBufferHeader(); err != nil {
		return false, err
	}
	if (b.cached.BiosFlags^b.cached.BmcFlags)&wire.Overflow == 0 {
		return false, nil
	}

	if err := b.UpdateBmcFlags(b.cached.BmcFlags ^ wire.Overflow); err != nil {
		return false, err
	}
	if b.telemetry != nil {
		b.telemetry.OverflowAcknowledged.Inc()
	}
	log.Warnf("buffer: acknowledged BIOS overflow signal")
	return true, nil
}

