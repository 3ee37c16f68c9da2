// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump implements the bioserrlogd "dump" subcommand: render the
// header and a drain preview of a captured mailbox snapshot file, for
// offline field diagnostics.
package dump

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/openbmc/bios-bmc-smm-error-logger/cmd/bioserrlogd/commands"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/buffer"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/memregion"
)

var _ commands.Command = (*Command)(nil)

// Command is the "dump" subcommand's option set.
type Command struct {
	SnapshotPath string `description:"path to a captured mailbox region snapshot" required:"true" long:"snapshot-path"`
	QueueSize    uint32 `description:"total queue region size in bytes, used to validate the snapshot's header (I4)" required:"true" long:"queue-size"`
	UeRegionSize uint16 `description:"UE reserved region size in bytes" long:"ue-region-size"`
	ShowEntries  bool   `description:"also drain and print error-log entries from the snapshot" long:"show-entries"`
}

// ShortDescription implements commands.Command.
func (cmd *Command) ShortDescription() string {
	return "print the header and entries of a captured mailbox snapshot"
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

	raw, err := os.ReadFile(cmd.SnapshotPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	region := memregion.NewMemoryFrom(raw)
	buf := buffer.New(region, cmd.QueueSize, cmd.UeRegionSize, nil)
	if err := buf.ReadBufferHeader(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	header := buf.GetCachedHeader()

	h := table.NewWriter()
	h.SetOutputMirror(os.Stdout)
	h.SetTitle("Circular Buffer Header")
	h.AppendHeader(table.Row{"Field", "Value"})
	h.AppendRow(table.Row{"BmcInterfaceVersion", header.BmcInterfaceVersion})
	h.AppendRow(table.Row{"BiosInterfaceVersion", header.BiosInterfaceVersion})
	h.AppendRow(table.Row{"MagicNumber", fmt.Sprintf("%08x", header.MagicNumber)})
	h.AppendRow(table.Row{"QueueSize", humanize.Bytes(uint64(header.QueueSize))})
	h.AppendRow(table.Row{"UeRegionSize", humanize.Bytes(uint64(header.UeRegionSize))})
	h.AppendRow(table.Row{"BmcFlags", fmt.Sprintf("0x%x", header.BmcFlags)})
	h.AppendRow(table.Row{"BmcReadPtr", header.BmcReadPtr})
	h.AppendRow(table.Row{"BiosFlags", fmt.Sprintf("0x%x", header.BiosFlags)})
	h.AppendRow(table.Row{"BiosWritePtr", header.BiosWritePtr})
	h.Render()

	if !cmd.ShowEntries {
		return nil
	}

	entries, err := buf.ReadErrorLogs()
	if err != nil {
		return fmt.Errorf("drain entries: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Error Log Entries")
	t.AppendHeader(table.Row{"SequenceID", "EntrySize", "Checksum", "RdeCommandType", "Payload"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.Header.SequenceID,
			entry.Header.EntrySize,
			fmt.Sprintf("0x%02x", entry.Header.Checksum),
			entry.Header.RdeCommandType,
			fmt.Sprintf("%x", entry.Payload),
		})
	}
	t.Render()
	return nil
}
