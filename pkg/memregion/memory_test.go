// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package memregion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(16)
	n, err := m.Write(4, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	got, err := m.Read(4, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestMemoryClipsOutOfBoundsAccess(t *testing.T) {
	m := NewMemory(8)

	got, err := m.Read(6, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	n, err := m.Write(6, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err = m.Read(100, 4)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNewMemoryFromReferencesUnderlyingSlice(t *testing.T) {
	buf := make([]byte, 4)
	m := NewMemoryFrom(buf)
	_, err := m.Write(0, []byte{0xaa, 0xbb, 0xcc, 0xdd})
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, buf)
	require.Equal(t, buf, m.Bytes())
}
