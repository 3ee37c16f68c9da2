// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dictionary implements the keyed store of BEJ dictionaries used
// to decode RDE payloads: append, completion, invalidation and lookup,
// keyed by Redfish resource ID.
package dictionary

import (
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
)

// AnnotationResourceID is the reserved resource ID for the annotation
// dictionary, used alongside every schema dictionary to decode BEJ
// payloads.
const AnnotationResourceID uint32 = 0

type entry struct {
	valid bool
	data  []byte
}

// Manager is a keyed store of dictionaries, each tracked as valid
// (complete) or not, with a running count of valid entries (I6).
type Manager struct {
	entries   map[uint32]*entry
	validCount uint32

	telemetry *telemetry.Telemetry
}

// New creates an empty Manager.
func New(tel *telemetry.Telemetry) *Manager {
	return &Manager{
		entries:   make(map[uint32]*entry),
		telemetry: tel,
	}
}

// StartEntry begins (or restarts) a dictionary transfer for resourceID.
// If the key is absent, a new invalid entry is inserted holding data. If
// present, it is marked invalid (decrementing validCount if it was
// valid) and its data buffer is replaced with data.
func (m *Manager) StartEntry(resourceID uint32, data []byte) {
	e, ok := m.entries[resourceID]
	if !ok {
		buf := make([]byte, len(data))
		copy(buf, data)
		m.entries[resourceID] = &entry{valid: false, data: buf}
		m.syncGauge()
		return
	}

	if e.valid {
		m.validCount--
		e.valid = false
	}
	e.data = append(e.data[:0], data...)
	m.syncGauge()
}

// MarkComplete transitions resourceID's entry to valid. Returns false if
// no entry exists for resourceID.
func (m *Manager) MarkComplete(resourceID uint32) bool {
	e, ok := m.entries[resourceID]
	if !ok {
		return false
	}
	if !e.valid {
		m.validCount++
		e.valid = true
	}
	m.syncGauge()
	return true
}

// AddData appends data to resourceID's entry, marking it invalid again
// (a dictionary being appended to is, by definition, not yet complete).
// Returns false if no entry exists for resourceID.
func (m *Manager) AddData(resourceID uint32, data []byte) bool {
	e, ok := m.entries[resourceID]
	if !ok {
		return false
	}
	if e.valid {
		m.validCount--
		e.valid = false
	}
	e.data = append(e.data, data...)
	m.syncGauge()
	return true
}

// Get returns the dictionary data for resourceID, and whether it exists
// and is currently valid. The returned slice must not be mutated by the
// caller.
func (m *Manager) Get(resourceID uint32) ([]byte, bool) {
	e, ok := m.entries[resourceID]
	if !ok || !e.valid {
		return nil, false
	}
	return e.data, true
}

// GetAnnotation is a convenience wrapper for Get(AnnotationResourceID).
func (m *Manager) GetAnnotation() ([]byte, bool) {
	return m.Get(AnnotationResourceID)
}

// Count returns the number of currently valid dictionaries (I6).
func (m *Manager) Count() uint32 {
	return m.validCount
}

// InvalidateAll marks every dictionary invalid and resets the valid
// count, retaining the underlying data buffers: a later AddData for the
// same resource appends to the retained bytes, while a later StartEntry
// replaces them.
func (m *Manager) InvalidateAll() {
	for _, e := range m.entries {
		e.valid = false
	}
	m.validCount = 0
	m.syncGauge()
}

func (m *Manager) syncGauge() {
	if m.telemetry != nil {
		m.telemetry.DictionaryValidCount.Set(float64(m.validCount))
	}
}
