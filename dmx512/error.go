// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"errors"
	"fmt"
)

// error defined
var (
	ErrUseClosedHandle = errors.New("dmx512: use of closed handle")
	ErrAgentStopped    = errors.New("dmx512: transmission agent stopped")
	ErrNotSyncMode     = errors.New("dmx512: update requires sync mode")
)

// Configuration and channel errors
var (
	ErrInvalidChannel    = errors.New("dmx512: channel out of range")
	ErrInvalidPacketTime = errors.New("dmx512: packet time out of range")
	ErrPortOpen          = errors.New("dmx512: cannot open serial port")
	ErrTransmission      = errors.New("dmx512: transmission fault")
)

// Patch allocation errors
var (
	ErrChannelInUse = errors.New("dmx512: channel already in use")
	ErrNoChannels   = errors.New("dmx512: no channels available")
)

// ChannelError reports a channel number outside 1..512.
type ChannelError struct {
	Channel int
	TooHigh bool // false means below 1
}

func (e *ChannelError) Error() string {
	if e.TooHigh {
		return fmt.Sprintf("dmx512: channel %d too high (max %d)", e.Channel, Channels)
	}
	return fmt.Sprintf("dmx512: channel %d too low (min 1)", e.Channel)
}

func (e *ChannelError) Unwrap() error { return ErrInvalidChannel }

// CheckChannel returns a *ChannelError when channel is not in 1..512.
func CheckChannel(channel int) error {
	if channel > Channels {
		return &ChannelError{Channel: channel, TooHigh: true}
	}
	if channel < 1 {
		return &ChannelError{Channel: channel}
	}
	return nil
}

// PortOpenError is returned by Open when the serial device cannot be claimed.
// The underlying error is usually a serial.PortError.
type PortOpenError struct {
	Port string
	Err  error
}

func (e *PortOpenError) Error() string {
	return fmt.Sprintf("dmx512: open %s: %v", e.Port, e.Err)
}

func (e *PortOpenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPortOpen) hold.
func (e *PortOpenError) Is(target error) bool { return target == ErrPortOpen }

// TransmissionFault is a configure/write failure inside a frame cycle.
// It is fatal to the transmission agent.
type TransmissionFault struct {
	Op  string // "break mode", "break write", "data mode", "data write", "drain"
	Err error
}

func (e *TransmissionFault) Error() string {
	return fmt.Sprintf("dmx512: transmission fault (%s): %v", e.Op, e.Err)
}

func (e *TransmissionFault) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransmission) hold.
func (e *TransmissionFault) Is(target error) bool { return target == ErrTransmission }
