// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import "errors"

// Sentinel errors returned by CircularBuffer. All of these are fatal to
// the current poll loop tick: the PollLoop responds to any of them with
// exactly one re-initialization attempt (see pkg/pollloop).
var (
	// ErrShortRead is returned when the underlying ByteRegion returned
	// fewer bytes than requested.
	ErrShortRead = errors.New("buffer: short read")

	// ErrShortWrite is returned when the underlying ByteRegion wrote
	// fewer bytes than requested.
	ErrShortWrite = errors.New("buffer: short write")

	// ErrInvariantViolation is returned when a read or write pointer
	// falls outside [0, maxOffset] (I2), or when a wraparound read's
	// relative offset falls outside [0, maxOffset) or its length exceeds
	// maxOffset.
	ErrInvariantViolation = errors.New("buffer: pointer invariant violated")

	// ErrMagicMismatch is returned when the cached header's magic number
	// no longer matches what this session was initialized with (I1).
	ErrMagicMismatch = errors.New("buffer: magic number mismatch, producer reset")

	// ErrSizeDrift is returned when QueueSize or UeRegionSize no longer
	// match the build-time configured values (I4).
	ErrSizeDrift = errors.New("buffer: queue/UE region size drift")

	// ErrChecksum is returned by ReadEntry when an entry's XOR checksum
	// is non-zero (I5).
	ErrChecksum = errors.New("buffer: entry checksum mismatch")

	// ErrDrainIncomplete is returned by ReadErrorLogs when the read
	// pointer did not land exactly on bios_write_ptr after consuming the
	// precomputed number of bytes (I3 post-drain).
	ErrDrainIncomplete = errors.New("buffer: drain left read pointer short of write pointer")

	// ErrRegionTooSmall is returned by Initialize when the backing
	// ByteRegion is smaller than the requested queue size.
	ErrRegionTooSmall = errors.New("buffer: region smaller than requested queue size")
)
