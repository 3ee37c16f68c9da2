// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/memregion"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/wire"
)

const (
	testQueueSize = 0x200
	testUeSize    = 0x50
	testMaxOffset = testQueueSize - testUeSize - wire.HeaderSize // 0x180
	testVersion   = wire.InterfaceVersionCurrentU24
)

var testMagic = [4]uint32{0x1, 0x2, 0x3, 0x4}

func newTestTelemetry() *telemetry.Telemetry {
	return telemetry.New(prometheus.NewRegistry())
}

// buildRegion writes a fully formed header directly into a fresh Memory
// region, bypassing CircularBuffer.Initialize so the test can set
// bios_write_ptr (a BIOS-owned field the production API never exposes a
// setter for).
func buildRegion(t *testing.T, bmcReadPtr, biosWritePtr uint32) *memregion.Memory {
	t.Helper()
	region := memregion.NewMemory(testQueueSize)
	header := wire.CircularBufferHeader{
		BmcInterfaceVersion: testVersion,
		QueueSize:           testQueueSize,
		UeRegionSize:        testUeSize,
		MagicNumber:         testMagic,
		BmcReadPtr:          bmcReadPtr,
		BiosWritePtr:        biosWritePtr,
	}
	encoded, err := wire.MarshalHeader(header)
	require.NoError(t, err)
	_, err = region.Write(0, encoded)
	require.NoError(t, err)
	return region
}

// writeRingBytes writes data into the ring starting at relativeOffset,
// wrapping at testMaxOffset.
func writeRingBytes(t *testing.T, region *memregion.Memory, relativeOffset int, data []byte) {
	t.Helper()
	queueOffset := wire.HeaderSize + testUeSize
	tailLen := testMaxOffset - relativeOffset
	if tailLen > len(data) {
		tailLen = len(data)
	}
	_, err := region.Write(queueOffset+relativeOffset, data[:tailLen])
	require.NoError(t, err)
	if tailLen < len(data) {
		_, err := region.Write(queueOffset, data[tailLen:])
		require.NoError(t, err)
	}
}

func TestEmptyDrain(t *testing.T) {
	// Scenario 1.
	region := buildRegion(t, 0, 0)
	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	require.NoError(t, buf.ReadBufferHeader())

	entries, err := buf.ReadErrorLogs()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSingleSmallEntry(t *testing.T) {
	// Scenario 2.
	region := buildRegion(t, 0, 10)

	header := wire.QueueEntryHeader{SequenceID: 7, EntrySize: 4, RdeCommandType: 1}
	headerBytes, err := header.MarshalBinary()
	require.NoError(t, err)
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	header.Checksum = wire.XORChecksum(headerBytes, payload)
	headerBytes, err = header.MarshalBinary()
	require.NoError(t, err)

	writeRingBytes(t, region, 0, append(headerBytes, payload...))

	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	entries, err := buf.ReadErrorLogs()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, header, entries[0].Header)
	require.Equal(t, payload, entries[0].Payload)
	require.EqualValues(t, 10, buf.GetCachedHeader().BmcReadPtr)
}

func TestWraparoundEntry(t *testing.T) {
	// Scenario 3.
	readPtr := uint32(testMaxOffset - 3)
	writePtr := uint32(7)
	region := buildRegion(t, readPtr, writePtr)

	header := wire.QueueEntryHeader{SequenceID: 1, EntrySize: 4, RdeCommandType: 1}
	headerBytes, err := header.MarshalBinary()
	require.NoError(t, err)
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	header.Checksum = wire.XORChecksum(headerBytes, payload)
	headerBytes, err = header.MarshalBinary()
	require.NoError(t, err)

	writeRingBytes(t, region, int(readPtr), append(headerBytes, payload...))

	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	entries, err := buf.ReadErrorLogs()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, payload, entries[0].Payload)
	require.EqualValues(t, 7, buf.GetCachedHeader().BmcReadPtr)
}

func TestReadEntryChecksumMismatch(t *testing.T) {
	region := buildRegion(t, 0, 10)
	header := wire.QueueEntryHeader{SequenceID: 1, EntrySize: 4, Checksum: 0xff, RdeCommandType: 1}
	headerBytes, err := header.MarshalBinary()
	require.NoError(t, err)
	writeRingBytes(t, region, 0, append(headerBytes, []byte{1, 2, 3, 4}...))

	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	_, err = buf.ReadErrorLogs()
	require.ErrorIs(t, err, ErrChecksum)
}

func TestSizeDriftDetected(t *testing.T) {
	region := buildRegion(t, 0, 0)
	buf := New(region, testQueueSize+1, testUeSize, newTestTelemetry())
	require.NoError(t, buf.ReadBufferHeader())
	_, err := buf.ReadErrorLogs()
	require.ErrorIs(t, err, ErrSizeDrift)
}

func TestInitializeThenReadBufferHeaderRoundTrip(t *testing.T) {
	region := memregion.NewMemory(testQueueSize)
	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	require.NoError(t, buf.Initialize(testVersion, testQueueSize, testUeSize, testMagic))

	other := New(region, testQueueSize, testUeSize, newTestTelemetry())
	require.NoError(t, other.ReadBufferHeader())
	require.True(t, buf.GetCachedHeader().Equal(other.GetCachedHeader()))
}

func TestCheckForOverflowAndAcknowledge(t *testing.T) {
	region := buildRegion(t, 0, 0)
	// Flip BIOS's overflow bit only; BMC's copy starts at 0, so they differ.
	header, err := wire.UnmarshalHeader(mustRead(t, region, 0, wire.HeaderSize))
	require.NoError(t, err)
	header.BiosFlags ^= wire.Overflow
	encoded, err := wire.MarshalHeader(header)
	require.NoError(t, err)
	_, err = region.Write(0, encoded)
	require.NoError(t, err)

	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	acked, err := buf.CheckForOverflowAndAcknowledge()
	require.NoError(t, err)
	require.True(t, acked)

	// A second call should see bmc_flags now matching bios_flags.
	acked, err = buf.CheckForOverflowAndAcknowledge()
	require.NoError(t, err)
	require.False(t, acked)
}

func TestReadUELogFromReservedRegion(t *testing.T) {
	region := buildRegion(t, 0, 0)
	header, err := wire.UnmarshalHeader(mustRead(t, region, 0, wire.HeaderSize))
	require.NoError(t, err)
	header.BiosFlags ^= wire.UESwitch
	encoded, err := wire.MarshalHeader(header)
	require.NoError(t, err)
	_, err = region.Write(0, encoded)
	require.NoError(t, err)

	uePayload := make([]byte, testUeSize)
	for i := range uePayload {
		uePayload[i] = byte(i)
	}
	_, err = region.Write(wire.HeaderSize, uePayload)
	require.NoError(t, err)

	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	got, err := buf.ReadUELogFromReservedRegion()
	require.NoError(t, err)
	require.Equal(t, uePayload, got)
}

func mustRead(t *testing.T, region *memregion.Memory, offset, length int) []byte {
	t.Helper()
	b, err := region.Read(offset, length)
	require.NoError(t, err)
	return b
}

func TestErrorsAreSentinelComparable(t *testing.T) {
	require.True(t, errors.Is(ErrChecksum, ErrChecksum))
}

func TestMagicNumberMismatchAfterBiosReset(t *testing.T) {
	// I1: once a session has observed a magic number, a later header
	// read bearing a different one means BIOS reset the region.
	region := memregion.NewMemory(testQueueSize)
	buf := New(region, testQueueSize, testUeSize, newTestTelemetry())
	require.NoError(t, buf.Initialize(testVersion, testQueueSize, testUeSize, testMagic))

	other := [4]uint32{0xa, 0xb, 0xc, 0xd}
	require.NoError(t, buf.Initialize(testVersion, testQueueSize, testUeSize, other))
	buf.sessionMagic = testMagic // force the drift an external BIOS reset would cause

	err := buf.ReadBufferHeader()
	require.ErrorIs(t, err, ErrMagicMismatch)
}
