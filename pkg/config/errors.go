// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import "fmt"

func errInvalid(format string, args ...any) error {
	return fmt.Errorf("config: "+format, args...)
}
