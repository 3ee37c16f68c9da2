// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// bioserrlogd drains BIOS-produced error records from a shared-memory
// mailbox region, decodes them against BEJ dictionaries, and publishes
// the resulting JSON records.
//
// Synopsis:
//
//	bioserrlogd run --region-path /dev/mailbox0 --region-offset 0 --region-size 65536 --queue-size 65536 --ue-region-size 512 --magic-number 0x1,0x2,0x3,0x4 --sink-dir /var/lib/bioserrlogd
//	bioserrlogd dump --snapshot-path snapshot.bin --queue-size 65536 --ue-region-size 512
package main

import (
	"log"

	"github.com/jessevdk/go-flags"

	"github.com/openbmc/bios-bmc-smm-error-logger/cmd/bioserrlogd/commands"
	"github.com/openbmc/bios-bmc-smm-error-logger/cmd/bioserrlogd/commands/dump"
	"github.com/openbmc/bios-bmc-smm-error-logger/cmd/bioserrlogd/commands/run"
)

var knownCommands = map[string]commands.Command{
	"run":  &run.Command{},
	"dump": &dump.Command{},
}

func main() {
	parser := flags.NewParser(nil, flags.Default)
	for name, cmd := range knownCommands {
		if _, err := parser.AddCommand(name, cmd.ShortDescription(), cmd.LongDescription(), cmd); err != nil {
			panic(err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		log.Fatal(err)
	}
}
