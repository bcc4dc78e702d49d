// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/riclolsen/go-dmx512/dmx512"
	"github.com/riclolsen/go-dmx512/timing"
)

// duration reads Go duration strings such as "22.7ms" from TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// showConfig is the dmxsend.toml file layout.
type showConfig struct {
	Port           string   `toml:"port"`
	Mode           string   `toml:"mode"`
	PacketTime     duration `toml:"packet_time"`
	MarkAfterBreak duration `toml:"mark_after_break"`
	ShortFrame     bool     `toml:"short_frame"`
	HighPriority   *bool    `toml:"high_priority"`

	BPM          float64 `toml:"bpm"`
	FixtureWidth int     `toml:"fixture_width"`
	Fixtures     int     `toml:"fixtures"`
}

func defaultShowConfig() showConfig {
	return showConfig{
		Mode:         "async",
		BPM:          120,
		FixtureWidth: 3,
		Fixtures:     4,
	}
}

// loadShowConfig reads path over the defaults. An empty path returns the
// defaults.
func loadShowConfig(path string) (showConfig, error) {
	c := defaultShowConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return c, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return c, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}
	return c, nil
}

// check validates the show part of the file; the transmitter part is
// checked by dmx512.Config.Valid.
func (c *showConfig) check() error {
	if c.FixtureWidth < 1 || c.FixtureWidth > dmx512.Channels {
		return fmt.Errorf("fixture_width %d out of range [1, %d]", c.FixtureWidth, dmx512.Channels)
	}
	if c.Fixtures < 1 {
		return errors.New("fixtures must be at least 1")
	}
	if !(c.BPM > 0 && c.BPM <= timing.MaxBPM) {
		return fmt.Errorf("%w: bpm %v", timing.ErrInvalidBPM, c.BPM)
	}
	return nil
}

// dmxConfig converts the file into a transmitter configuration.
func (c *showConfig) dmxConfig() (dmx512.Config, error) {
	cfg := dmx512.DefaultConfig()
	cfg.Port = c.Port
	mode, err := dmx512.ParseMode(c.Mode)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode
	cfg.PacketTime = c.PacketTime.Duration
	cfg.MarkAfterBreak = c.MarkAfterBreak.Duration
	cfg.ShortFrame = c.ShortFrame
	if c.HighPriority != nil {
		cfg.HighPriority = *c.HighPriority
	}
	if err := cfg.Valid(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// patchFixtures lays the fixtures out back to back in one universe and
// returns the first channel of each.
func (c *showConfig) patchFixtures() ([]int, error) {
	p := dmx512.NewPatch()
	starts := make([]int, 0, c.Fixtures)
	for i := 0; i < c.Fixtures; i++ {
		ch, err := p.Allocate(c.FixtureWidth)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i+1, err)
		}
		starts = append(starts, ch)
	}
	return starts, nil
}
