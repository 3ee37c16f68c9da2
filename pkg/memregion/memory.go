// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memregion

import (
	"github.com/xaionaro-go/bytesextra"
)

// Memory is a ByteRegion backed by a plain []byte, wrapped in a
// bytesextra.ReadWriteSeeker so the random-access Read/Write below can
// reuse an io.ReadWriteSeeker instead of hand-rolling slice bounds
// twice. Used by the buffer, memregion and poll loop unit tests and by the `dump` CLI
// subcommand against a captured mailbox snapshot.
type Memory struct {
	buf  []byte
	rws  *bytesextra.ReadWriteSeeker
}

// NewMemory creates a Memory region of the given size, zero-filled.
func NewMemory(size int) *Memory {
	return NewMemoryFrom(make([]byte, size))
}

// NewMemoryFrom wraps an existing byte slice as a Memory region; the
// slice's current length is the region size and the slice is referenced,
// not copied, so writes through the ByteRegion interface are visible to
// the caller's slice too.
func NewMemoryFrom(buf []byte) *Memory {
	return &Memory{
		buf: buf,
		rws: bytesextra.NewReadWriteSeeker(buf),
	}
}

// Size implements ByteRegion.
func (m *Memory) Size() int {
	return len(m.buf)
}

// Read implements ByteRegion.
func (m *Memory) Read(offset, length int) ([]byte, error) {
	n := clip(len(m.buf), offset, length)
	if n <= 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if _, err := m.rws.Seek(int64(offset), 0); err != nil {
		return nil, err
	}
	if _, err := m.rws.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Write implements ByteRegion.
func (m *Memory) Write(offset int, data []byte) (int, error) {
	n := clip(len(m.buf), offset, len(data))
	if n <= 0 {
		return 0, nil
	}
	if _, err := m.rws.Seek(int64(offset), 0); err != nil {
		return 0, err
	}
	return m.rws.Write(data[:n])
}

// Bytes returns the region's backing slice, for diagnostics that want to
// dump or persist a snapshot.
func (m *Memory) Bytes() []byte {
	return m.buf
}
