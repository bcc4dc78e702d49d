// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"
)

type portEvent struct {
	op   string // "mode", "write", "drain", "close"
	mode serial.Mode
	data []byte
	at   time.Time
}

// mockPort records everything the encoder does to it.
type mockPort struct {
	mu     sync.Mutex
	mode   serial.Mode
	events []portEvent
	frames [][]byte    // data writes
	breaks []time.Time // time of each break write
	closed bool

	failMode  error // returned by SetMode to the data profile
	failAfter int   // data writes that succeed before failWrite is returned
	failWrite error
	block     chan struct{} // when set, data writes wait on it

	frameSent chan struct{}
}

func newMockPort() *mockPort {
	return &mockPort{frameSent: make(chan struct{}, 4096)}
}

var errMockWrite = errors.New("mock: write failed")

func (m *mockPort) SetMode(mode *serial.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMode != nil && mode.BaudRate == DataProfile.BaudRate {
		return m.failMode
	}
	m.mode = *mode
	m.events = append(m.events, portEvent{op: "mode", mode: *mode, at: time.Now()})
	return nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	isBreak := m.mode.BaudRate == BreakProfile.BaudRate
	block := m.block
	m.mu.Unlock()

	if !isBreak && block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	cp := append([]byte(nil), p...)
	m.events = append(m.events, portEvent{op: "write", mode: m.mode, data: cp, at: now})
	if isBreak {
		m.breaks = append(m.breaks, now)
		return len(p), nil
	}
	if m.failWrite != nil && len(m.frames) >= m.failAfter {
		return 0, m.failWrite
	}
	m.frames = append(m.frames, cp)
	select {
	case m.frameSent <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (m *mockPort) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, portEvent{op: "drain", mode: m.mode, at: time.Now()})
	return nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.events = append(m.events, portEvent{op: "close", at: time.Now()})
	return nil
}

func (m *mockPort) frameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *mockPort) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockPort) snapshot() ([][]byte, []time.Time, []portEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := append([][]byte(nil), m.frames...)
	breaks := append([]time.Time(nil), m.breaks...)
	events := append([]portEvent(nil), m.events...)
	return frames, breaks, events
}

// waitFrames blocks until at least n frames were written.
func (m *mockPort) waitFrames(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for m.frameCount() < n {
		select {
		case <-m.frameSent:
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, got %d", n, m.frameCount())
		}
	}
}

// openMock starts a handle on a fresh mock port with logging and the
// priority raise turned off.
func openMock(t *testing.T, o *Option) (*DMXSerial, *mockPort) {
	t.Helper()
	if o == nil {
		o = NewOption()
	}
	o.SetLogMode(false).SetHighPriority(false)
	mp := newMockPort()
	d, err := OpenWithPort(mp, o)
	if err != nil {
		t.Fatalf("OpenWithPort: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, mp
}
