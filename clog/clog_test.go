// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package clog

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

type recordProvider struct {
	lines []string
}

func (r *recordProvider) add(level, format string, v ...interface{}) {
	r.lines = append(r.lines, level+" "+fmt.Sprintf(format, v...))
}

func (r *recordProvider) Critical(format string, v ...interface{}) { r.add("CRIT", format, v...) }
func (r *recordProvider) Error(format string, v ...interface{})    { r.add("ERROR", format, v...) }
func (r *recordProvider) Warn(format string, v ...interface{})     { r.add("WARN", format, v...) }
func (r *recordProvider) Debug(format string, v ...interface{})    { r.add("DEBUG", format, v...) }

func TestLogModeGatesOutput(t *testing.T) {
	rec := &recordProvider{}
	l := NewLogger("test => ")
	l.SetLogProvider(rec)

	l.Debug("dropped %d", 1)
	if len(rec.lines) != 0 {
		t.Fatalf("expected no output while disabled, got %v", rec.lines)
	}

	l.LogMode(true)
	l.Debug("kept %d", 2)
	l.Warn("warn")
	l.Error("err %s", "x")
	l.Critical("boom")

	want := []string{"DEBUG kept 2", "WARN warn", "ERROR err x", "CRIT boom"}
	if len(rec.lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(rec.lines), len(want), rec.lines)
	}
	for i := range want {
		if rec.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, rec.lines[i], want[i])
		}
	}

	l.LogMode(false)
	l.Error("dropped again")
	if len(rec.lines) != len(want) {
		t.Errorf("output after LogMode(false): %v", rec.lines)
	}
}

func TestSetLogProviderIgnoresNil(t *testing.T) {
	rec := &recordProvider{}
	var l Clog
	l.SetLogProvider(rec)
	l.SetLogProvider(nil)
	l.LogMode(true)
	l.Warn("still here")
	if len(rec.lines) != 1 {
		t.Fatalf("nil provider replaced the previous one: %v", rec.lines)
	}
}

func TestZeroValueClogIsSilent(t *testing.T) {
	var l Clog
	l.LogMode(true)
	l.Error("no provider, no panic")
}

func TestZerologProviderPrefix(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, "dmx512 [ttyUSB0] => ")
	p.Debug("frame %d sent", 7)
	p.Critical("port lost")

	out := buf.String()
	if !strings.Contains(out, "dmx512 [ttyUSB0] => frame 7 sent") {
		t.Errorf("debug line missing prefix/message: %q", out)
	}
	if !strings.Contains(out, "port lost") || !strings.Contains(out, "critical") {
		t.Errorf("critical line not marked: %q", out)
	}
}
