// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package clog is the small leveled logger embedded by the dmx512 driver types.
package clog

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogProvider is the backend a Clog writes through.
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog is embedded by value; logging is off until LogMode(true).
type Clog struct {
	provider LogProvider
	has      uint32
}

// NewLogger creates a logger whose messages are prefixed with prefix.
func NewLogger(prefix string) Clog {
	return Clog{provider: NewZerologProvider(os.Stdout, prefix)}
}

// LogMode enables or disables log output.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider replaces the backend. A nil provider is ignored.
// Not safe to call while other goroutines are logging.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

func (sf *Clog) get() LogProvider {
	if atomic.LoadUint32(&sf.has) == 0 {
		return nil
	}
	return sf.provider
}

// Critical logs a message the driver cannot recover from.
func (sf *Clog) Critical(format string, v ...interface{}) {
	if p := sf.get(); p != nil {
		p.Critical(format, v...)
	}
}

// Error logs an error message.
func (sf *Clog) Error(format string, v ...interface{}) {
	if p := sf.get(); p != nil {
		p.Error(format, v...)
	}
}

// Warn logs a warning message.
func (sf *Clog) Warn(format string, v ...interface{}) {
	if p := sf.get(); p != nil {
		p.Warn(format, v...)
	}
}

// Debug logs a debug message.
func (sf *Clog) Debug(format string, v ...interface{}) {
	if p := sf.get(); p != nil {
		p.Debug(format, v...)
	}
}

// ZerologProvider writes Clog messages through a zerolog.Logger.
type ZerologProvider struct {
	prefix string
	l      zerolog.Logger
}

var _ LogProvider = (*ZerologProvider)(nil)

// NewZerologProvider returns a provider writing human readable lines to w.
func NewZerologProvider(w io.Writer, prefix string) *ZerologProvider {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339Nano, NoColor: true}
	return &ZerologProvider{
		prefix: prefix,
		l:      zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
	}
}

// NewZerologProviderFrom wraps an already configured zerolog.Logger.
func NewZerologProviderFrom(l zerolog.Logger, prefix string) *ZerologProvider {
	return &ZerologProvider{prefix: prefix, l: l}
}

// Critical implements LogProvider.
func (sf *ZerologProvider) Critical(format string, v ...interface{}) {
	sf.l.Error().Bool("critical", true).Msg(sf.prefix + fmt.Sprintf(format, v...))
}

// Error implements LogProvider.
func (sf *ZerologProvider) Error(format string, v ...interface{}) {
	sf.l.Error().Msg(sf.prefix + fmt.Sprintf(format, v...))
}

// Warn implements LogProvider.
func (sf *ZerologProvider) Warn(format string, v ...interface{}) {
	sf.l.Warn().Msg(sf.prefix + fmt.Sprintf(format, v...))
}

// Debug implements LogProvider.
func (sf *ZerologProvider) Debug(format string, v ...interface{}) {
	sf.l.Debug().Msg(sf.prefix + fmt.Sprintf(format, v...))
}
