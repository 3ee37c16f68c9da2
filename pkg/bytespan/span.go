// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytespan describes byte ranges within the ring queue region,
// used to report wraparound reads in diagnostics.
package bytespan

import (
	"fmt"
	"strings"
)

// Span is a byte range, relative to the start of the ring queue region.
type Span struct {
	Offset uint32
	Length uint32
}

// String renders the span as a compact hex range, e.g. for log lines
// describing a wraparound read.
func (s Span) String() string {
	return fmt.Sprintf("{offset:0x%x length:0x%x}", s.Offset, s.Length)
}

// End returns the exclusive end offset of the span.
func (s Span) End() uint32 {
	return s.Offset + s.Length
}

// Spans is an ordered sequence of Span, used to describe a wraparound
// read that was split into a tail leg and a head leg.
type Spans []Span

// String renders every span, in order.
func (s Spans) String() string {
	parts := make([]string, 0, len(s))
	for _, span := range s {
		parts = append(parts, span.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TotalLength returns the sum of every span's length.
func (s Spans) TotalLength() uint32 {
	var total uint32
	for _, span := range s {
		total += span.Length
	}
	return total
}
