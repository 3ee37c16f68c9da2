// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pollloop

import (
	"errors"
	"fmt"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/rde"
)

// ErrUEDecodeFailed is returned when a drained UE record fails to decode
// with anything other than Ok/StopFlagReceived, which this loop treats
// as fatal to the current tick (triggering a re-initialization attempt).
var ErrUEDecodeFailed = errors.New("pollloop: UE record decode failed")

func errFatalDecode(status rde.DecodeStatus) error {
	return fmt.Errorf("%w: status=%s", ErrUEDecodeFailed, status)
}
