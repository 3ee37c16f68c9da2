// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dictionary

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
)

func newTestManager() *Manager {
	return New(telemetry.New(prometheus.NewRegistry()))
}

func TestStartMarkCompleteAddDataLifecycle(t *testing.T) {
	m := newTestManager()

	m.StartEntry(1, []byte("part1"))
	require.EqualValues(t, 0, m.Count())
	_, ok := m.Get(1)
	require.False(t, ok, "entry should not be valid until marked complete")

	require.True(t, m.MarkComplete(1))
	require.EqualValues(t, 1, m.Count())
	data, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("part1"), data)

	require.True(t, m.AddData(1, []byte("part2")))
	// AddData marks the entry invalid again until MarkComplete is called.
	require.EqualValues(t, 0, m.Count())
	_, ok = m.Get(1)
	require.False(t, ok)

	require.True(t, m.MarkComplete(1))
	data, ok = m.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("part1part2"), data)
}

func TestMarkCompleteAndAddDataOnUnknownResource(t *testing.T) {
	m := newTestManager()
	require.False(t, m.MarkComplete(42))
	require.False(t, m.AddData(42, []byte("x")))
}

func TestStartEntryResetsValidity(t *testing.T) {
	m := newTestManager()
	m.StartEntry(1, []byte("a"))
	m.MarkComplete(1)
	require.EqualValues(t, 1, m.Count())

	m.StartEntry(1, []byte("b"))
	require.EqualValues(t, 0, m.Count())
	_, ok := m.Get(1)
	require.False(t, ok)
}

func TestGetAnnotation(t *testing.T) {
	m := newTestManager()
	m.StartEntry(AnnotationResourceID, []byte("annotation"))
	m.MarkComplete(AnnotationResourceID)
	data, ok := m.GetAnnotation()
	require.True(t, ok)
	require.Equal(t, []byte("annotation"), data)
}

func TestInvalidateAll(t *testing.T) {
	m := newTestManager()
	m.StartEntry(1, []byte("a"))
	m.MarkComplete(1)
	m.StartEntry(2, []byte("b"))
	m.MarkComplete(2)
	require.EqualValues(t, 2, m.Count())

	m.InvalidateAll()
	require.EqualValues(t, 0, m.Count())
	_, ok := m.Get(1)
	require.False(t, ok)
	_, ok = m.Get(2)
	require.False(t, ok)
}
