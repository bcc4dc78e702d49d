// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"time"

	"github.com/riclolsen/go-dmx512/clog"
)

// Option holds everything Open needs besides the port itself.
type Option struct {
	config      Config
	logMode     bool
	logProvider clog.LogProvider
	onFault     func(d *DMXSerial, err error)
}

// NewOption creates a new Option with the default DMX512 config.
// Note: the port needs to be set explicitly using SetPort or SetConfig.
func NewOption() *Option {
	return &Option{
		config:  DefaultConfig(),
		logMode: true,
	}
}

// SetConfig sets the transmitter configuration. Keeps the previous config
// if cfg is invalid.
func (sf *Option) SetConfig(cfg Config) *Option {
	if err := cfg.Valid(); err == nil {
		sf.config = cfg
	}
	return sf
}

// SetPort sets the serial device name.
func (sf *Option) SetPort(port string) *Option {
	sf.config.Port = port
	return sf
}

// SetMode sets the initial transmission mode.
func (sf *Option) SetMode(m TransmissionMode) *Option {
	if m == ModeAsync || m == ModeSync {
		sf.config.Mode = m
	}
	return sf
}

// SetPacketTime sets the initial minimum break-to-break interval.
// Out of range values are ignored.
func (sf *Option) SetPacketTime(d time.Duration) *Option {
	if sf.config.checkPacketTime(d) == nil {
		sf.config.PacketTime = d
	}
	return sf
}

// SetShortFrame enables trimming trailing zero channels from each frame.
func (sf *Option) SetShortFrame(b bool) *Option {
	sf.config.ShortFrame = b
	return sf
}

// SetHighPriority enables or disables raising the transmit thread priority.
func (sf *Option) SetHighPriority(b bool) *Option {
	sf.config.HighPriority = b
	return sf
}

// SetLogMode enables or disables logging output.
func (sf *Option) SetLogMode(enable bool) *Option {
	sf.logMode = enable
	return sf
}

// SetLogProvider routes the handle's log output to p.
func (sf *Option) SetLogProvider(p clog.LogProvider) *Option {
	sf.logProvider = p
	return sf
}

// SetFaultHandler sets the handler called from the agent goroutine when a
// transmission fault stops it.
func (sf *Option) SetFaultHandler(f func(d *DMXSerial, err error)) *Option {
	sf.onFault = f
	return sf
}

// Config returns a copy of the current configuration.
func (sf *Option) Config() Config {
	return sf.config
}
