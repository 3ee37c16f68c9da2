// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pollloop drives the timer-based tick that ties together the
// circular buffer, the RDE command handler, and telemetry: draining the
// UE region, acknowledging overflow, draining the error queue, and
// re-initializing the buffer on a fatal tick.
package pollloop

import (
	"context"
	"time"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/buffer"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/rde"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/telemetry"
	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/wire"
)

// InitParams bundles the arguments CircularBuffer.Initialize needs, so a
// re-init attempt after a fatal tick can replay the exact parameters the
// loop was started with.
type InitParams struct {
	BmcInterfaceVersion uint32
	QueueSize           uint32
	UeRegionSize        uint16
	MagicNumber         [4]uint32
}

// PollLoop orchestrates CircularBuffer and Handler on a fixed interval.
type PollLoop struct {
	buf       *buffer.CircularBuffer
	handler   *rde.Handler
	interval  time.Duration
	initParams InitParams
	telemetry  *telemetry.Telemetry
}

// New constructs a PollLoop. Callers must have already initialized or
// attached buf (via Initialize or ReadBufferHeader) before calling Run.
func New(buf *buffer.CircularBuffer, handler *rde.Handler, interval time.Duration, initParams InitParams, tel *telemetry.Telemetry) *PollLoop {
	return &PollLoop{
		buf:        buf,
		handler:    handler,
		interval:   interval,
		initParams: initParams,
		telemetry:  tel,
	}
}

// Run ticks until ctx is canceled, then returns nil. A tick whose
// re-initialization attempt also fails does not return here: tick logs
// it via log.Fatalf, which exits the process.
func (p *PollLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.tick(); err != nil {
				return err
			}
		}
	}
}

// tick runs one iteration of step 1-3 from the poll loop design, and on
// any fatal error attempts exactly one re-initialization. If that
// succeeds the tick counts as recovered and returns nil; if it fails,
// the process exits via log.Fatalf.
func (p *PollLoop) tick() error {
	if err := p.runTick(); err != nil {
		log.Errorf("pollloop: tick failed: %v", err)
		if p.telemetry != nil {
			p.telemetry.ReinitAttemptsTotal.Inc()
		}
		if reinitErr := p.buf.Initialize(p.initParams.BmcInterfaceVersion, p.initParams.QueueSize, p.initParams.UeRegionSize, p.initParams.MagicNumber); reinitErr != nil {
			log.Fatalf("pollloop: re-initialization failed after tick error %v: %v", err, reinitErr)
		}
		log.Warnf("pollloop: recovered from tick error via re-initialization: %v", err)
	}
	return nil
}

func (p *PollLoop) runTick() error {
	if err := p.drainUE(); err != nil {
		return err
	}

	if _, err := p.buf.CheckForOverflowAndAcknowledge(); err != nil {
		return err
	}

	entries, err := p.buf.ReadErrorLogs()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		status := p.handler.Decode(entry.Payload, rde.CommandType(entry.Header.RdeCommandType))
		if status == rde.StatusStopFlagReceived {
			cached := p.buf.GetCachedHeader()
			if err := p.buf.UpdateBmcFlags(cached.BmcFlags | wire.Ready); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *PollLoop) drainUE() error {
	ue, err := p.buf.ReadUELogFromReservedRegion()
	if err != nil {
		return err
	}
	if len(ue) == 0 {
		return nil
	}

	status := p.handler.Decode(ue, rde.OperationInitRequest)
	if status != rde.StatusOk && status != rde.StatusStopFlagReceived {
		log.Errorf("pollloop: UE record decode failed with status %s", status)
		return errFatalDecode(status)
	}

	cached := p.buf.GetCachedHeader()
	return p.buf.UpdateBmcFlags(cached.BmcFlags ^ wire.UESwitch)
}
