// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

//go:build !linux

package dmx512

import (
	"errors"
	"runtime"
)

func raiseThreadPriority() error {
	return errors.New("per-thread priority not supported on " + runtime.GOOS)
}
