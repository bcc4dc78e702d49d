// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"runtime"
	"time"

	"go.bug.st/serial"
)

// Port is the part of a serial port the transmitter needs.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	// SetMode reconfigures baud rate, data bits, parity and stop bits.
	SetMode(mode *serial.Mode) error
	Write(p []byte) (int, error)
	// Drain blocks until the output buffer has been transmitted.
	Drain() error
	Close() error
}

// allow tests to override the serial backend
var (
	openPort = func(name string, mode *serial.Mode) (Port, error) { return serial.Open(name, mode) }
	listPort = serial.GetPortsList
)

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	return listPort()
}

// LineProfile holds one UART framing setup.
type LineProfile struct {
	// BaudRate is the line speed in bits per second.
	BaudRate int
	// DataBits is the number of data bits (5..8).
	DataBits int
	// Parity is serial.NoParity for both DMX profiles.
	Parity serial.Parity
	// StopBits is serial.OneStopBit or serial.TwoStopBits.
	StopBits serial.StopBits
}

// Mode converts the profile to a go.bug.st/serial mode.
func (p LineProfile) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		Parity:   p.Parity,
		StopBits: p.StopBits,
	}
}

// lowTime is how long writing one 0x00 byte holds the line low:
// the start bit plus every data bit.
func (p LineProfile) lowTime() time.Duration {
	if p.BaudRate <= 0 {
		return 0
	}
	bits := time.Duration(1 + p.DataBits)
	return bits * time.Second / time.Duration(p.BaudRate)
}

// BreakProfile drives the line low long enough to be seen as a break:
// start bit + 7 zero data bits at 57600 baud is about 139us (DMX minimum 88us).
var BreakProfile = LineProfile{
	BaudRate: 57600,
	DataBits: 7,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// DataProfile is the DMX512 slot framing: 250kbaud 8N2.
var DataProfile = LineProfile{
	BaudRate: 250000,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.TwoStopBits,
}

// spinThreshold is the part of a wait that is busy-polled instead of slept.
const spinThreshold = time.Millisecond

// waitFor pauses for d with sub-millisecond accuracy. Go timers can overshoot
// by far more than a mark-after-break, so the tail of the wait spins.
func waitFor(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > spinThreshold {
		time.Sleep(d - spinThreshold)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
