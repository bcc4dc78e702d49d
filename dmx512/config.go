// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Channels is the number of slots in one DMX512 universe.
const Channels = 512

// TransmissionMode selects who paces the frames.
type TransmissionMode uint32

const (
	ModeAsync TransmissionMode = iota // Agent free-runs at the packet time
	ModeSync                          // One frame per Update request
)

func (m TransmissionMode) String() string {
	switch m {
	case ModeAsync:
		return "async"
	case ModeSync:
		return "sync"
	default:
		return fmt.Sprintf("TransmissionMode(%d)", uint32(m))
	}
}

// ParseMode parses "async" or "sync".
func ParseMode(s string) (TransmissionMode, error) {
	switch s {
	case "async", "":
		return ModeAsync, nil
	case "sync":
		return ModeSync, nil
	}
	return ModeAsync, fmt.Errorf("dmx512: unknown transmission mode %q", s)
}

// Timing constants. DMX512 allows at most 1s between breaks before
// receivers may consider the signal lost.
const (
	// Gap between the end of the break and the start code.
	DefaultMarkAfterBreak = 136 * time.Microsecond
	MarkAfterBreakMin     = 8 * time.Microsecond
	MarkAfterBreakMax     = time.Second

	// Break-to-break interval of a full 512 slot frame at 250kbaud,
	// about 44 frames per second.
	DefaultPacketTime = 22700 * time.Microsecond
	// MinFrameTime is the shortest legal break-to-break interval.
	MinFrameTime  = 1204 * time.Microsecond
	MaxPacketTime = time.Second
)

// Config defines a DMX512 transmitter configuration.
type Config struct {
	// Port is the serial device (e.g. "/dev/ttyUSB0" or "COM4").
	Port string

	// Line setup used to generate the break and to send the slots.
	// Zero values take BreakProfile and DataProfile.
	Break LineProfile
	Data  LineProfile

	// Idle time between break and start code.
	MarkAfterBreak time.Duration

	// Minimum break-to-break interval in async mode. Can be changed at
	// runtime with SetPacketTime.
	PacketTime time.Duration

	// Initial transmission mode.
	Mode TransmissionMode

	// ShortFrame only sends slots up to the last non-zero channel.
	// Receivers are allowed to depend on full 512 slot frames, so this
	// is off unless asked for.
	ShortFrame bool

	// HighPriority raises the OS priority of the transmit thread where
	// the platform allows it.
	HighPriority bool
}

// MinPacketTime is the lowest packet time cfg accepts: the minimum frame
// time plus the break and mark-after-break overhead.
func (sf *Config) MinPacketTime() time.Duration {
	brk := sf.Break
	if brk.BaudRate == 0 {
		brk = BreakProfile
	}
	mab := sf.MarkAfterBreak
	if mab == 0 {
		mab = DefaultMarkAfterBreak
	}
	return MinFrameTime + brk.lowTime() + mab
}

// Valid applies defaults and checks configuration validity.
func (sf *Config) Valid() error {
	if sf == nil {
		return errors.New("invalid nil config")
	}

	if sf.Port == "" {
		return errors.New("serial port name must be configured")
	}

	if sf.Break == (LineProfile{}) {
		sf.Break = BreakProfile
	} else if err := sf.Break.valid(); err != nil {
		return fmt.Errorf("break profile: %w", err)
	}
	if sf.Data == (LineProfile{}) {
		sf.Data = DataProfile
	} else if err := sf.Data.valid(); err != nil {
		return fmt.Errorf("data profile: %w", err)
	}

	if sf.Mode != ModeAsync && sf.Mode != ModeSync {
		return errors.New("invalid transmission mode")
	}

	if sf.MarkAfterBreak == 0 {
		sf.MarkAfterBreak = DefaultMarkAfterBreak
	} else if sf.MarkAfterBreak < MarkAfterBreakMin || sf.MarkAfterBreak > MarkAfterBreakMax {
		return fmt.Errorf("mark after break %v out of range [%v, %v]", sf.MarkAfterBreak, MarkAfterBreakMin, MarkAfterBreakMax)
	}

	if sf.PacketTime == 0 {
		sf.PacketTime = DefaultPacketTime
	} else if err := sf.checkPacketTime(sf.PacketTime); err != nil {
		return err
	}

	return nil
}

func (sf *Config) checkPacketTime(d time.Duration) error {
	if lo := sf.MinPacketTime(); d < lo || d > MaxPacketTime {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrInvalidPacketTime, d, lo, MaxPacketTime)
	}
	return nil
}

func (p LineProfile) valid() error {
	if p.BaudRate <= 0 {
		return errors.New("baud rate must be positive")
	}
	if p.DataBits < 5 || p.DataBits > 8 {
		return errors.New("data bits must be between 5 and 8")
	}
	switch p.StopBits {
	case serial.OneStopBit, serial.OnePointFiveStopBits, serial.TwoStopBits:
	default:
		return errors.New("invalid stop bits")
	}
	return nil
}

// DefaultConfig provides a default DMX512 configuration.
// NOTE: Port needs to be set explicitly.
func DefaultConfig() Config {
	return Config{
		Break:          BreakProfile,
		Data:           DataProfile,
		MarkAfterBreak: DefaultMarkAfterBreak,
		PacketTime:     DefaultPacketTime,
		Mode:           ModeAsync,
		HighPriority:   true,
	}
}
