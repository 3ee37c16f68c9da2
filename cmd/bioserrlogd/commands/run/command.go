// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package run implements the bioserrlogd "run" subcommand: attach to a
// mailbox region and drive the poll loop until terminated.
package run

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openbmc/bios-bmc-smm-error-logger/cmd/bioserrlogd/commands"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/bej"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/buffer"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/config"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/dictionary"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/memregion"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/pollloop"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/rde"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/sink"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
)

var _ commands.Command = (*Command)(nil)

// Command is the "run" subcommand's option set.
type Command struct {
	RegionPath       string `description:"path to the mailbox region (device node or file)" required:"true" long:"region-path"`
	RegionOffset     int64  `description:"byte offset of the mailbox within region-path" long:"region-offset"`
	RegionSize       int    `description:"size in bytes of the mailbox region" required:"true" long:"region-size"`
	ReadIntervalMS   int    `description:"poll loop tick interval, in milliseconds" long:"read-interval-ms" default:"1000"`
	InterfaceVersion uint32 `description:"BMC interface version (1=legacy u16, 2=current u24)" long:"interface-version" default:"2"`
	QueueSize        uint32 `description:"total queue region size in bytes, header+UE region+ring" required:"true" long:"queue-size"`
	UeRegionSize     uint16 `description:"UE reserved region size in bytes" long:"ue-region-size"`
	MagicNumber      string `description:"comma-separated four 32-bit words (decimal, or hex with a 0x prefix) identifying an initialized region" required:"true" long:"magic-number"`
	SinkDirectory    string `description:"directory to write published JSON records into" required:"true" long:"sink-dir"`
	MetricsListen    string `description:"address the Prometheus /metrics endpoint listens on" long:"metrics-listen" default:"127.0.0.1:9110"`
	Initialize       bool   `description:"zero and initialize the region before running, instead of attaching to an already-initialized one" long:"initialize"`
}

// ShortDescription implements commands.Command.
func (cmd *Command) ShortDescription() string {
	return "attach to a mailbox region and drain BIOS error records"
}

// LongDescription implements commands.Command.
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute implements flags.Commander.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	magic, err := parseMagicNumber(cmd.MagicNumber)
	if err != nil {
		return commands.ErrArgs{Err: err}
	}

	cfg, err := config.Load(config.Config{
		ReadIntervalMS:       cmd.ReadIntervalMS,
		MemoryRegionOffset:   cmd.RegionOffset,
		MemoryRegionSize:     cmd.RegionSize,
		BmcInterfaceVersion:  cmd.InterfaceVersion,
		QueueRegionSize:      cmd.QueueSize,
		UeRegionSize:         cmd.UeRegionSize,
		MagicNumber:          magic,
		MetricsListenAddress: cmd.MetricsListen,
		SinkDirectory:        cmd.SinkDirectory,
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	region, err := memregion.NewFile(cmd.RegionPath, cfg.MemoryRegionOffset, cfg.MemoryRegionSize)
	if err != nil {
		return fmt.Errorf("open mailbox region: %w", err)
	}
	defer region.Close()

	reg := prometheus.NewRegistry()
	tel := telemetry.New(reg)

	buf := buffer.New(region, cfg.QueueRegionSize, cfg.UeRegionSize, tel)
	if cmd.Initialize {
		if err := buf.Initialize(cfg.BmcInterfaceVersion, cfg.QueueRegionSize, cfg.UeRegionSize, cfg.MagicNumber); err != nil {
			return fmt.Errorf("initialize mailbox region: %w", err)
		}
	} else if err := buf.ReadBufferHeader(); err != nil {
		return fmt.Errorf("read mailbox header: %w", err)
	}

	dm := dictionary.New(tel)
	sinkImpl := sink.New(cfg.SinkDirectory, nil)
	handler := rde.New(dm, bej.New(), sinkImpl, tel)

	loop := pollloop.New(buf, handler, cfg.ReadInterval(), pollloop.InitParams{
		BmcInterfaceVersion: cfg.BmcInterfaceVersion,
		QueueSize:           cfg.QueueRegionSize,
		UeRegionSize:        cfg.UeRegionSize,
		MagicNumber:         cfg.MagicNumber,
	}, tel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pollloop.ServeMetrics(ctx, cfg.MetricsListenAddress, reg)

	log.Infof("bioserrlogd: attached to %s, polling every %s", cmd.RegionPath, cfg.ReadInterval())
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("poll loop terminated: %w", err)
	}
	return nil
}

func parseMagicNumber(s string) ([4]uint32, error) {
	var magic [4]uint32
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return magic, fmt.Errorf("magic-number must have exactly 4 comma-separated words, got %d", len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 0, 32)
		if err != nil {
			return magic, fmt.Errorf("magic-number word %d (%q): %w", i, part, err)
		}
		magic[i] = uint32(v)
	}
	return magic, nil
}
