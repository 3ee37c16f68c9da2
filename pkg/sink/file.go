// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sink implements the downstream publish/notify surface decoded
// BEJ records are handed to: one JSON file per record, written into a
// configured directory and fsynced before the caller is told it landed.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
)

// NotifyFunc is called with the final path of each published record.
// Callers that need to signal a downstream consumer (a D-Bus object, a
// message queue) inject their own implementation; the zero value is a
// no-op.
type NotifyFunc func(path string) error

// File publishes JSON records as individual files under Dir.
type File struct {
	dir    string
	notify NotifyFunc
	seq    uint64
}

// New constructs a File sink rooted at dir, which must already exist.
// notify may be nil, in which case NotifyNewEntry is a no-op.
func New(dir string, notify NotifyFunc) *File {
	return &File{dir: dir, notify: notify}
}

// PublishJSON writes json to a new file under Dir and fsyncs it. The
// returned bool mirrors the distilled interface's publish_json(str) ->
// bool contract: it is true exactly when err is nil.
func (f *File) PublishJSON(json string) (bool, error) {
	n := atomic.AddUint64(&f.seq, 1)
	name := fmt.Sprintf("%020d-%d.json", time.Now().UnixNano(), n)
	path := filepath.Join(f.dir, name)

	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return false, fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer fh.Close()

	if _, err := fh.WriteString(json); err != nil {
		return false, fmt.Errorf("sink: write %s: %w", path, err)
	}
	if err := fh.Sync(); err != nil {
		return false, fmt.Errorf("sink: fsync %s: %w", path, err)
	}

	if err := f.NotifyNewEntry(path); err != nil {
		log.Warnf("sink: notify failed for %s: %v", path, err)
		return false, err
	}
	return true, nil
}

// NotifyNewEntry signals that path now holds a freshly published record.
func (f *File) NotifyNewEntry(path string) error {
	if f.notify == nil {
		return nil
	}
	return f.notify(path)
}
