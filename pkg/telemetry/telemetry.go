// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package telemetry holds the Prometheus collectors shared by the
// circular buffer, the RDE command handler, and the poll loop. It is
// constructed once in main and threaded through the other
// constructors, rather than living behind package-level globals.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry groups the metrics emitted by the agent.
type Telemetry struct {
	OverflowAcknowledged  prometheus.Counter
	UeDrains              prometheus.Counter
	DrainBytes            prometheus.Histogram
	DecodeStatusTotal     *prometheus.CounterVec
	DictionaryInterleave  prometheus.Counter
	DictionaryValidCount  prometheus.Gauge
	ReinitAttemptsTotal   prometheus.Counter
}

// New registers and returns the agent's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with other
// tests registering the same metric names against the default registry.
func New(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		OverflowAcknowledged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bioserrlogd",
			Name:      "overflow_acknowledged_total",
			Help:      "Number of times the BMC acknowledged a BIOS-signaled ring queue overflow.",
		}),
		UeDrains: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bioserrlogd",
			Name:      "ue_drains_total",
			Help:      "Number of times the uncorrectable-error reserved region was drained.",
		}),
		DrainBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bioserrlogd",
			Name:      "drain_bytes",
			Help:      "Bytes drained from the mailbox per drain (one observation per UE region read and one per non-empty error queue drain).",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
		}),
		DecodeStatusTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bioserrlogd",
			Name:      "decode_status_total",
			Help:      "Terminal RdeDecodeStatus outcomes, by status.",
		}, []string{"status"}),
		DictionaryInterleave: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bioserrlogd",
			Name:      "dictionary_interleave_total",
			Help:      "Number of times a Middle/End multipart frame introduced a new resource ID without the running CRC being reset (see DESIGN.md Open Question).",
		}),
		DictionaryValidCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bioserrlogd",
			Name:      "dictionary_valid_count",
			Help:      "Current number of valid (complete) dictionaries held by the dictionary manager.",
		}),
		ReinitAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bioserrlogd",
			Name:      "reinit_attempts_total",
			Help:      "Number of times the poll loop attempted to re-initialize the circular buffer after a fatal error.",
		}),
	}
}
