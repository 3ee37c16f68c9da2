// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config defines the agent's configuration surface and validates
// it, aggregating every violated constraint rather than failing on the
// first one found.
package config

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/wire"
)

// Config is the full set of knobs the agent needs to attach to a mailbox
// region and run the poll loop.
type Config struct {
	// ReadIntervalMS is how often the poll loop ticks.
	ReadIntervalMS int

	// MemoryRegionOffset and MemoryRegionSize locate the mailbox within
	// the backing file or device when using memregion.File.
	MemoryRegionOffset int64
	MemoryRegionSize   int

	// BmcInterfaceVersion selects the u16 or u24 pointer-width wire
	// layout (wire.InterfaceVersionLegacyU16/CurrentU24).
	BmcInterfaceVersion uint32

	// QueueRegionSize and UeRegionSize are the build-time-configured
	// sizes checked against the header on every tick (I4).
	QueueRegionSize uint32
	UeRegionSize    uint16

	// MagicNumber is the four-word value CircularBuffer.Initialize
	// writes. Later header reads are validated against the magic number
	// the buffer first saw in the session (I1), which is this value only
	// when the region was initialized by this agent.
	MagicNumber [4]uint32

	// MetricsListenAddress is the address the Prometheus /metrics
	// endpoint listens on, e.g. "127.0.0.1:9110".
	MetricsListenAddress string

	// SinkDirectory is where the file sink writes published records.
	SinkDirectory string
}

// ReadInterval returns ReadIntervalMS as a time.Duration.
func (c Config) ReadInterval() time.Duration {
	return time.Duration(c.ReadIntervalMS) * time.Millisecond
}

// Default returns a Config with the defaults a typical deployment uses,
// leaving the fields that have no sane default (MagicNumber, directories)
// zero-valued.
func Default() Config {
	return Config{
		ReadIntervalMS:       1000,
		BmcInterfaceVersion:  wire.InterfaceVersionCurrentU24,
		QueueRegionSize:      4096,
		UeRegionSize:         512,
		MetricsListenAddress: "127.0.0.1:9110",
	}
}

// Load validates c, returning an aggregated *multierror.Error listing
// every violated constraint. A nil return means c is ready to use.
func Load(c Config) (Config, error) {
	var errs *multierror.Error

	if c.ReadIntervalMS <= 0 {
		errs = multierror.Append(errs, errInvalid("ReadIntervalMS must be positive, got %d", c.ReadIntervalMS))
	}
	if c.BmcInterfaceVersion != wire.InterfaceVersionLegacyU16 && c.BmcInterfaceVersion != wire.InterfaceVersionCurrentU24 {
		errs = multierror.Append(errs, errInvalid("BmcInterfaceVersion %d is not a known protocol version", c.BmcInterfaceVersion))
	}
	minQueueSize := uint32(wire.HeaderSize) + uint32(c.UeRegionSize)
	if c.QueueRegionSize <= minQueueSize {
		errs = multierror.Append(errs, errInvalid("QueueRegionSize %d must exceed header+UE region size %d", c.QueueRegionSize, minQueueSize))
	}
	if c.MemoryRegionSize > 0 && uint32(c.MemoryRegionSize) < c.QueueRegionSize {
		errs = multierror.Append(errs, errInvalid("MemoryRegionSize %d is smaller than QueueRegionSize %d", c.MemoryRegionSize, c.QueueRegionSize))
	}
	if c.MagicNumber == [4]uint32{} {
		errs = multierror.Append(errs, errInvalid("MagicNumber must be non-zero"))
	}
	if c.SinkDirectory == "" {
		errs = multierror.Append(errs, errInvalid("SinkDirectory must be set"))
	}
	if c.MetricsListenAddress == "" {
		errs = multierror.Append(errs, errInvalid("MetricsListenAddress must be set"))
	}

	if errs != nil {
		return Config{}, errs.ErrorOrNil()
	}
	return c, nil
}
