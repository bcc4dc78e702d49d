// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a handle's transmission counters.
type Stats struct {
	Frames      uint64        // frames fully written
	Updates     uint64        // sync mode acknowledgements received
	Faults      uint64        // 0 or 1, the agent stops on the first
	LastFrame   time.Duration // break to last data byte drained
	LastFrameAt time.Time     // when the last frame started
}

type stats struct {
	frames      atomic.Uint64
	updates     atomic.Uint64
	faults      atomic.Uint64
	lastFrame   atomic.Int64
	lastFrameAt atomic.Int64 // unix nanoseconds
}

func (s *stats) frameSent(start time.Time, took time.Duration) {
	s.lastFrame.Store(int64(took))
	s.lastFrameAt.Store(start.UnixNano())
	s.frames.Add(1)
}

// Stats returns the current transmission counters.
func (sf *DMXSerial) Stats() Stats {
	st := Stats{
		Frames:    sf.stats.frames.Load(),
		Updates:   sf.stats.updates.Load(),
		Faults:    sf.stats.faults.Load(),
		LastFrame: time.Duration(sf.stats.lastFrame.Load()),
	}
	if ns := sf.stats.lastFrameAt.Load(); ns != 0 {
		st.LastFrameAt = time.Unix(0, ns)
	}
	return st
}
