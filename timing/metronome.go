// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package timing paces show updates to a musical tempo.
package timing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/riclolsen/go-dmx512/clog"
)

// MaxBPM is the highest tempo a Metronome accepts.
const MaxBPM = 1000.0

// tapWindow is the number of tap intervals averaged by Tap.
const tapWindow = 16

// tapTimeout is the longest gap between two taps of one sequence (30 bpm).
// A later tap starts a new sequence.
const tapTimeout = 2 * time.Second

// error defined
var (
	ErrInvalidBPM     = errors.New("timing: bpm out of range")
	ErrAlreadyStarted = errors.New("timing: metronome already started")
	ErrAlreadyStopped = errors.New("timing: metronome already stopped")
)

// BeatDuration returns the time between two beats at bpm.
func BeatDuration(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm)
}

func checkBPM(bpm float64) error {
	// written so NaN fails too
	if !(bpm > 0 && bpm <= MaxBPM) {
		return fmt.Errorf("%w: %v not in (0, %v]", ErrInvalidBPM, bpm, MaxBPM)
	}
	return nil
}

// Metronome calls a callback once per beat from its own goroutine.
// The first beat fires right after Start. Tempo and callback may be
// changed while it runs and apply from the next beat on.
type Metronome struct {
	clog.Clog

	mu       sync.Mutex
	bpm      float64
	callback func()
	cancel   context.CancelFunc // nil when stopped

	taps    []float64 // bpm of the last tap intervals
	lastTap time.Time
}

// NewMetronome returns a stopped metronome. An out of range bpm falls back
// to 120. Logging is off until LogMode(true).
func NewMetronome(bpm float64) *Metronome {
	if checkBPM(bpm) != nil {
		bpm = 120
	}
	return &Metronome{
		Clog: clog.NewLogger("metronome => "),
		bpm:  bpm,
	}
}

// SetCallback sets the function called on every beat. Allowed while running.
func (sf *Metronome) SetCallback(f func()) {
	sf.mu.Lock()
	sf.callback = f
	sf.mu.Unlock()
}

// SetBPM changes the tempo.
func (sf *Metronome) SetBPM(bpm float64) error {
	if err := checkBPM(bpm); err != nil {
		return err
	}
	sf.mu.Lock()
	sf.bpm = bpm
	sf.mu.Unlock()
	return nil
}

// BPM returns the current tempo.
func (sf *Metronome) BPM() float64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.bpm
}

// Running reports whether the beat goroutine is active.
func (sf *Metronome) Running() bool {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.cancel != nil
}

// Start launches the beat goroutine.
func (sf *Metronome) Start() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.cancel != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	sf.cancel = cancel
	sf.Debug("Started at %.1f bpm", sf.bpm)
	go sf.run(ctx)
	return nil
}

// Stop ends the beat goroutine. A beat in progress completes; no further
// callbacks start. Stop may be called from the callback itself.
func (sf *Metronome) Stop() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.cancel == nil {
		return ErrAlreadyStopped
	}
	sf.cancel()
	sf.cancel = nil
	sf.Debug("Stopped")
	return nil
}

func (sf *Metronome) run(ctx context.Context) {
	for {
		sf.mu.Lock()
		f, bpm := sf.callback, sf.bpm
		sf.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		sf.beat(f)

		t := time.NewTimer(BeatDuration(bpm))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (sf *Metronome) beat(f func()) {
	if f == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			sf.Critical("panic recovered in beat callback: %v", r)
		}
	}()
	f()
}

// Tap registers a tap. From the second tap on, the tempo becomes the
// average over the last 16 tap intervals. Taps more than 2s apart start a
// new sequence and leave the tempo unchanged.
func (sf *Metronome) Tap() {
	sf.tapAt(time.Now())
}

func (sf *Metronome) tapAt(now time.Time) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	last := sf.lastTap
	sf.lastTap = now
	if last.IsZero() {
		return
	}
	elapsed := now.Sub(last)
	if elapsed <= 0 {
		return
	}
	bpm := float64(time.Minute) / float64(elapsed)
	if elapsed > tapTimeout || checkBPM(bpm) != nil {
		// a pause or a bounce: start over from this tap
		sf.taps = sf.taps[:0]
		return
	}
	sf.taps = append(sf.taps, bpm)
	if len(sf.taps) > tapWindow {
		sf.taps = sf.taps[len(sf.taps)-tapWindow:]
	}
	var sum float64
	for _, b := range sf.taps {
		sum += b
	}
	sf.bpm = sum / float64(len(sf.taps))
}
