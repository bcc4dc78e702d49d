// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"errors"
	"fmt"
	"sync"
)

// Patch tracks which channels of one universe are reserved, so blocks of
// channels can be handed out without overlapping.
type Patch struct {
	mu   sync.Mutex
	used [Channels]bool
	free int
}

// NewPatch returns a patch with every channel free.
func NewPatch() *Patch {
	return &Patch{free: Channels}
}

func checkBlock(start, count int) error {
	if count < 1 {
		return errors.New("dmx512: channel count must be positive")
	}
	if err := CheckChannel(start); err != nil {
		return err
	}
	return CheckChannel(start + count - 1)
}

// Reserve claims channels start..start+count-1. Nothing is claimed if any
// of them is already in use.
func (sf *Patch) Reserve(start, count int) error {
	if err := checkBlock(start, count); err != nil {
		return err
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	for ch := start; ch < start+count; ch++ {
		if sf.used[ch-1] {
			return fmt.Errorf("%w: %d", ErrChannelInUse, ch)
		}
	}
	sf.mark(start, count, true)
	return nil
}

// Allocate claims the first free block of count channels and returns its
// first channel.
func (sf *Patch) Allocate(count int) (int, error) {
	if count < 1 || count > Channels {
		return 0, fmt.Errorf("%w: block of %d", ErrNoChannels, count)
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	run := 0
	for i := 0; i < Channels; i++ {
		if sf.used[i] {
			run = 0
			continue
		}
		run++
		if run == count {
			start := i - count + 2
			sf.mark(start, count, true)
			return start, nil
		}
	}
	return 0, fmt.Errorf("%w: block of %d", ErrNoChannels, count)
}

// Release frees channels start..start+count-1.
func (sf *Patch) Release(start, count int) error {
	if err := checkBlock(start, count); err != nil {
		return err
	}
	sf.mu.Lock()
	sf.mark(start, count, false)
	sf.mu.Unlock()
	return nil
}

// InUse reports whether channel is reserved. Out of range channels are not.
func (sf *Patch) InUse(channel int) bool {
	if CheckChannel(channel) != nil {
		return false
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.used[channel-1]
}

// Free returns the number of unreserved channels.
func (sf *Patch) Free() int {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.free
}

func (sf *Patch) mark(start, count int, used bool) {
	for i := start - 1; i < start-1+count; i++ {
		if sf.used[i] != used {
			sf.used[i] = used
			if used {
				sf.free--
			} else {
				sf.free++
			}
		}
	}
}
