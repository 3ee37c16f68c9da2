// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

// BufferFlags bits are shared between BiosFlags and BmcFlags; presence of
// a bit signals an event, and the recipient acknowledges by flipping its
// own copy of the same bit (XOR toggling, not a shared value).
const (
	// UESwitch indicates that BIOS has placed a new record in the UE
	// reserved region.
	UESwitch uint32 = 1 << 0

	// Overflow indicates that BIOS dropped one or more entries because
	// the ring queue was full.
	Overflow uint32 = 1 << 1

	// Ready is BMC-owned only: set once the BMC has finished decoding a
	// command that terminated the dictionary transfer state machine.
	Ready uint32 = 1 << 2
)
