// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"fmt"
	"runtime"
	"time"
)

// run is the transmission agent. It owns the port until it returns.
func (sf *DMXSerial) run(enc *encoder) {
	defer func() {
		sf.closeErr = sf.port.Close()
		close(sf.done)
		sf.Debug("Transmission agent stopped, port released")
		if err := sf.Err(); err != nil {
			sf.callFaultHandler(err)
		}
	}()

	if sf.cfg.HighPriority {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := raiseThreadPriority(); err != nil {
			sf.Warn("Failed to raise transmit thread priority: %v. Continuing anyways...", err)
		}
	}
	sf.Debug("Transmission agent started (mode %s, packet time %v)", sf.Mode(), sf.PacketTime())

	for {
		select {
		case <-sf.ctx.Done():
			return
		default:
		}

		if sf.IsSync() {
			select {
			case <-sf.ctx.Done():
				return
			case <-sf.wake:
				continue
			case <-sf.updateReq:
			}
			// read before the snapshot: the frame covers every ticket
			// taken so far
			target := sf.requested.Load()
			if err := sf.transmit(enc); err != nil {
				sf.fault(err)
				return
			}
			sf.advance(&sf.served, target)
			continue
		}

		start := time.Now()
		if err := sf.transmit(enc); err != nil {
			sf.fault(err)
			return
		}
		if wait := sf.PacketTime() - time.Since(start); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-sf.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

// transmit copies the universe out under the read lock and sends it with
// the lock released.
func (sf *DMXSerial) transmit(enc *encoder) error {
	sf.rwMux.RLock()
	snapshot := sf.channels
	sf.rwMux.RUnlock()

	start := time.Now()
	if err := enc.send(&snapshot); err != nil {
		return err
	}
	sf.stats.frameSent(start, time.Since(start))
	return nil
}

// fault records err and marks the agent terminal. Partial frames must not
// reach fixtures, so nothing is retried.
func (sf *DMXSerial) fault(err error) {
	sf.errMux.Lock()
	sf.err = err
	sf.errMux.Unlock()
	sf.stats.faults.Add(1)
	sf.Error("Transmission agent stopped on fault: %v", err)
	sf.cancel()
}

func (sf *DMXSerial) callFaultHandler(err error) {
	if sf.onFault == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			sf.Critical("%v", fmt.Errorf("panic recovered in fault handler: %v", r))
		}
	}()
	sf.onFault(sf, err)
}
