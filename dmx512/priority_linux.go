// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

//go:build linux

package dmx512

import "golang.org/x/sys/unix"

// transmitNice is the nice value asked for the transmit thread.
// Values below 0 need CAP_SYS_NICE or a matching RLIMIT_NICE.
const transmitNice = -20

// raiseThreadPriority lowers the nice value of the calling OS thread only.
// The caller must hold runtime.LockOSThread.
func raiseThreadPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), transmitNice)
}
