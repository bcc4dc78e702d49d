// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riclolsen/go-dmx512/dmx512"
	"github.com/riclolsen/go-dmx512/timing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dmxsend.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadShowConfig(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyUSB0"
mode = "sync"
packet_time = "25ms"
mark_after_break = "200us"
short_frame = true
high_priority = false
bpm = 140.5
fixture_width = 6
fixtures = 8
`)
	sc, err := loadShowConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.check(); err != nil {
		t.Fatal(err)
	}
	cfg, err := sc.dmxConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "/dev/ttyUSB0" || cfg.Mode != dmx512.ModeSync {
		t.Errorf("port %q mode %v", cfg.Port, cfg.Mode)
	}
	if cfg.PacketTime != 25*time.Millisecond || cfg.MarkAfterBreak != 200*time.Microsecond {
		t.Errorf("packet %v mab %v", cfg.PacketTime, cfg.MarkAfterBreak)
	}
	if !cfg.ShortFrame || cfg.HighPriority {
		t.Errorf("short %v high priority %v", cfg.ShortFrame, cfg.HighPriority)
	}
	if sc.BPM != 140.5 {
		t.Errorf("bpm %v", sc.BPM)
	}

	starts, err := sc.patchFixtures()
	if err != nil {
		t.Fatal(err)
	}
	if len(starts) != 8 || starts[0] != 1 || starts[1] != 7 || starts[7] != 43 {
		t.Errorf("fixtures at %v", starts)
	}
}

func TestLoadShowConfigDefaults(t *testing.T) {
	sc, err := loadShowConfig(writeConfig(t, `port = "COM4"`))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := sc.dmxConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PacketTime != dmx512.DefaultPacketTime || cfg.MarkAfterBreak != dmx512.DefaultMarkAfterBreak {
		t.Errorf("timing defaults not applied: %+v", cfg)
	}
	if cfg.Mode != dmx512.ModeAsync || !cfg.HighPriority {
		t.Errorf("mode %v high priority %v", cfg.Mode, cfg.HighPriority)
	}

	if _, err := loadShowConfig(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestLoadShowConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", `colour = "red"`},
		{"bad duration", `packet_time = "fast"`},
		{"bad syntax", `port = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadShowConfig(writeConfig(t, tt.body)); err == nil {
				t.Errorf("accepted %q", tt.body)
			}
		})
	}
	if _, err := loadShowConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("missing file accepted")
	}
}

func TestShowConfigCheck(t *testing.T) {
	sc := defaultShowConfig()
	sc.BPM = 0
	if err := sc.check(); !errors.Is(err, timing.ErrInvalidBPM) {
		t.Errorf("bpm 0: %v", err)
	}

	sc = defaultShowConfig()
	sc.FixtureWidth = 0
	if err := sc.check(); err == nil {
		t.Errorf("zero width accepted")
	}

	sc = defaultShowConfig()
	sc.Mode = "burst"
	sc.Port = "COM1"
	if _, err := sc.dmxConfig(); err == nil {
		t.Errorf("unknown mode accepted")
	}

	sc = defaultShowConfig()
	sc.Port = "COM1"
	sc.PacketTime.Duration = time.Millisecond
	if _, err := sc.dmxConfig(); !errors.Is(err, dmx512.ErrInvalidPacketTime) {
		t.Errorf("1ms packet time: %v", err)
	}
}

func TestPatchFixturesOverflow(t *testing.T) {
	sc := defaultShowConfig()
	sc.FixtureWidth = 100
	sc.Fixtures = 6
	if _, err := sc.patchFixtures(); !errors.Is(err, dmx512.ErrNoChannels) {
		t.Errorf("600 channels patched into one universe: %v", err)
	}
}

func TestFixtureLevels(t *testing.T) {
	u := fixtureLevels([]int{1, 4, 7}, 3, 200, func(i int) bool { return i == 1 })
	for ch := 1; ch <= 9; ch++ {
		want := byte(0)
		if ch >= 4 && ch <= 6 {
			want = 200
		}
		if u[ch-1] != want {
			t.Errorf("channel %d = %d, want %d", ch, u[ch-1], want)
		}
	}
}
