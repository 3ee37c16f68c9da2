// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memregion

import "os"

// File is a ByteRegion backed by an *os.File, accessed via ReadAt/WriteAt
// at a fixed byte offset within the file (MemoryRegionOffset in the
// configuration surface). This lets the agent run against a real device
// node (or a plain file standing in for one during integration testing)
// without this module performing its own mmap(2) of physical memory.
type File struct {
	f             *os.File
	regionOffset  int64
	regionSize    int
}

// NewFile opens path and wraps [regionOffset, regionOffset+regionSize)
// within it as a ByteRegion.
func NewFile(path string, regionOffset int64, regionSize int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &File{f: f, regionOffset: regionOffset, regionSize: regionSize}, nil
}

// Close closes the underlying file.
func (r *File) Close() error {
	return r.f.Close()
}

// Size implements ByteRegion.
func (r *File) Size() int {
	return r.regionSize
}

// Read implements ByteRegion.
func (r *File) Read(offset, length int) ([]byte, error) {
	n := clip(r.regionSize, offset, length)
	if n <= 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if _, err := r.f.ReadAt(out, r.regionOffset+int64(offset)); err != nil {
		return nil, err
	}
	return out, nil
}

// Write implements ByteRegion.
func (r *File) Write(offset int, data []byte) (int, error) {
	n := clip(r.regionSize, offset, len(data))
	if n <= 0 {
		return 0, nil
	}
	return r.f.WriteAt(data[:n], r.regionOffset+int64(offset))
}
