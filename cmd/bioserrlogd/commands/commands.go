// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands declares the shared Commander contract for the
// bioserrlogd CLI's subcommands.
package commands

import "github.com/jessevdk/go-flags"

// Command is implemented by each subcommand ("run", "dump").
type Command interface {
	flags.Commander

	// ShortDescription explains what this command does in one line.
	ShortDescription() string

	// LongDescription gives the full help text for this command.
	LongDescription() string
}

// ErrArgs means the positional arguments given to a command were invalid.
type ErrArgs struct {
	Err error
}

func (err ErrArgs) Error() string {
	return "invalid arguments: " + err.Err.Error()
}

func (err ErrArgs) Unwrap() error {
	return err.Err
}
