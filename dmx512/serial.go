// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/riclolsen/go-dmx512/clog"
)

// DMXSerial is a DMX512 universe written to a serial port by a background
// transmission agent. The handle itself never touches the port: it only
// updates the shared channel buffer and signals the agent.
//
// All methods are safe for concurrent use.
type DMXSerial struct {
	cfg     Config
	port    Port
	id      string
	onFault func(d *DMXSerial, err error)
	clog.Clog

	// channel buffer, read by the agent as a copied snapshot
	rwMux    sync.RWMutex
	channels Universe

	mode       atomic.Uint32 // TransmissionMode
	packetTime atomic.Int64  // time.Duration

	// sync mode handshake: every Update takes a ticket from requested;
	// the agent raises served once a frame covering it is out, SetAsync
	// raises dropped for tickets that will never be served.
	requested atomic.Uint64
	served    atomic.Uint64
	dropped   atomic.Uint64
	updateReq chan struct{} // controller -> agent: tickets are pending
	ackMux    sync.Mutex
	ack       chan struct{} // closed and replaced when served or dropped moves
	wake      chan struct{} // mode switched, re-check the flag

	ctx       context.Context    // lifecycle token of the agent
	cancel    context.CancelFunc // cancels ctx, stops the agent
	done      chan struct{}      // closed once the agent exited and released the port
	closeOnce sync.Once
	closeErr  error

	errMux sync.Mutex
	err    error // fault that stopped the agent

	stats stats
}

// Open opens the serial device with the default configuration and starts
// transmitting an all-zero universe.
func Open(port string) (*DMXSerial, error) {
	return OpenWithOption(NewOption().SetPort(port))
}

// OpenWithOption opens the serial device named in o and starts the
// transmission agent. A *PortOpenError is returned if the device cannot be
// claimed; no agent is started in that case.
func OpenWithOption(o *Option) (*DMXSerial, error) {
	if o == nil {
		o = NewOption()
	}
	cfg := o.config
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	p, err := openPort(cfg.Port, cfg.Data.Mode())
	if err != nil {
		return nil, &PortOpenError{Port: cfg.Port, Err: err}
	}
	return start(p, o, cfg), nil
}

// OpenWithPort starts a transmission agent on an already opened port.
// The handle takes ownership of p and closes it on Close.
func OpenWithPort(p Port, o *Option) (*DMXSerial, error) {
	if p == nil {
		return nil, errors.New("dmx512: nil port")
	}
	if o == nil {
		o = NewOption()
	}
	cfg := o.config
	if cfg.Port == "" {
		cfg.Port = fmt.Sprintf("%T", p)
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return start(p, o, cfg), nil
}

func start(p Port, o *Option, cfg Config) *DMXSerial {
	id := uuid.New().String()
	sf := &DMXSerial{
		cfg:        cfg,
		port:       p,
		id:         id,
		onFault:    o.onFault,
		Clog:       clog.NewLogger(fmt.Sprintf("dmx512 [%s %s] => ", cfg.Port, id[:8])),
		updateReq: make(chan struct{}, 1),
		ack:       make(chan struct{}),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	sf.Clog.SetLogProvider(o.logProvider)
	sf.Clog.LogMode(o.logMode)
	sf.mode.Store(uint32(cfg.Mode))
	sf.packetTime.Store(int64(cfg.PacketTime))
	sf.ctx, sf.cancel = context.WithCancel(context.Background())

	go sf.run(newEncoder(p, &cfg))
	return sf
}

// SetChannel writes value to channel (1..512). The buffer is left unchanged
// when channel is out of range.
func (sf *DMXSerial) SetChannel(channel int, value byte) error {
	if err := CheckChannel(channel); err != nil {
		return err
	}
	sf.rwMux.Lock()
	sf.channels[channel-1] = value
	sf.rwMux.Unlock()
	return nil
}

// GetChannel returns the last value written to channel (1..512).
func (sf *DMXSerial) GetChannel(channel int) (byte, error) {
	if err := CheckChannel(channel); err != nil {
		return 0, err
	}
	sf.rwMux.RLock()
	defer sf.rwMux.RUnlock()
	return sf.channels[channel-1], nil
}

// GetChannels returns a copy of the whole universe.
func (sf *DMXSerial) GetChannels() Universe {
	sf.rwMux.RLock()
	defer sf.rwMux.RUnlock()
	return sf.channels
}

// SetChannels replaces the whole universe in one step; the agent sees
// either the old or the new values, never a mix.
func (sf *DMXSerial) SetChannels(u Universe) {
	sf.rwMux.Lock()
	sf.channels = u
	sf.rwMux.Unlock()
}

// SetRange writes values to the channels starting at start in one step.
func (sf *DMXSerial) SetRange(start int, values []byte) error {
	if len(values) == 0 {
		return CheckChannel(start)
	}
	if err := CheckChannel(start); err != nil {
		return err
	}
	if err := CheckChannel(start + len(values) - 1); err != nil {
		return err
	}
	sf.rwMux.Lock()
	copy(sf.channels[start-1:], values)
	sf.rwMux.Unlock()
	return nil
}

// ResetChannels sets every channel to 0.
func (sf *DMXSerial) ResetChannels() {
	sf.SetChannels(Universe{})
}

// SetSync switches to sync mode: from the next agent cycle on, a frame is
// only sent per Update request.
func (sf *DMXSerial) SetSync() {
	if TransmissionMode(sf.mode.Swap(uint32(ModeSync))) != ModeSync {
		sf.Debug("Transmission mode set to sync")
	}
}

// SetAsync switches to async mode: the agent free-runs at the packet time.
func (sf *DMXSerial) SetAsync() {
	if TransmissionMode(sf.mode.Swap(uint32(ModeAsync))) == ModeAsync {
		return
	}
	sf.Debug("Transmission mode set to async")
	// requests nobody will serve in async mode, release their waiters
	select {
	case <-sf.updateReq:
	default:
	}
	sf.advance(&sf.dropped, sf.requested.Load())
	select {
	case sf.wake <- struct{}{}:
	default:
	}
}

// IsSync reports whether the handle is in sync mode.
func (sf *DMXSerial) IsSync() bool {
	return sf.Mode() == ModeSync
}

// Mode returns the current transmission mode.
func (sf *DMXSerial) Mode() TransmissionMode {
	return TransmissionMode(sf.mode.Load())
}

// Update asks the agent for one frame and blocks until it has been sent.
// Only valid in sync mode.
func (sf *DMXSerial) Update() error {
	return sf.UpdateContext(context.Background())
}

// UpdateContext is Update bounded by ctx. A frame started before the call
// never satisfies it: it returns once a frame whose snapshot was taken
// after the request is fully written.
func (sf *DMXSerial) UpdateContext(ctx context.Context) error {
	ticket, err := sf.request()
	if err != nil {
		return err
	}
	return sf.waitUpdate(ctx, ticket)
}

// UpdateAsync asks the agent for one frame without waiting for it.
// Requests coalesce: pending requests are all served by the next frame.
func (sf *DMXSerial) UpdateAsync() error {
	_, err := sf.request()
	return err
}

// WaitForUpdate blocks until every frame requested so far has been sent.
func (sf *DMXSerial) WaitForUpdate() error {
	return sf.WaitForUpdateContext(context.Background())
}

// WaitForUpdateContext is WaitForUpdate bounded by ctx.
func (sf *DMXSerial) WaitForUpdateContext(ctx context.Context) error {
	if err := sf.checkUpdate(); err != nil {
		return err
	}
	return sf.waitUpdate(ctx, sf.requested.Load())
}

func (sf *DMXSerial) request() (uint64, error) {
	if err := sf.checkUpdate(); err != nil {
		return 0, err
	}
	ticket := sf.requested.Add(1)
	select {
	case sf.updateReq <- struct{}{}:
	default:
	}
	// SetAsync swaps the mode before reading requested: if it missed this
	// ticket, the mode read here already sees async
	if !sf.IsSync() {
		sf.advance(&sf.dropped, ticket)
	}
	return ticket, nil
}

func (sf *DMXSerial) checkUpdate() error {
	if !sf.Alive() {
		return sf.stoppedErr()
	}
	if !sf.IsSync() {
		return ErrNotSyncMode
	}
	return nil
}

func (sf *DMXSerial) waitUpdate(ctx context.Context, ticket uint64) error {
	for {
		// take the channel before reading the counters so a move in
		// between still wakes us
		sf.ackMux.Lock()
		ack := sf.ack
		sf.ackMux.Unlock()

		if sf.served.Load() >= ticket {
			sf.stats.updates.Add(1)
			return nil
		}
		if sf.dropped.Load() >= ticket {
			return ErrNotSyncMode
		}
		select {
		case <-ack:
		case <-sf.done:
			// the frame may have gone out before the agent left
			if sf.served.Load() >= ticket {
				sf.stats.updates.Add(1)
				return nil
			}
			return sf.stoppedErr()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// advance raises counter to at least v and wakes every waiter.
func (sf *DMXSerial) advance(counter *atomic.Uint64, v uint64) {
	for {
		cur := counter.Load()
		if cur >= v || counter.CompareAndSwap(cur, v) {
			break
		}
	}
	sf.ackMux.Lock()
	close(sf.ack)
	sf.ack = make(chan struct{})
	sf.ackMux.Unlock()
}

func (sf *DMXSerial) stoppedErr() error {
	if err := sf.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAgentStopped, err)
	}
	return ErrUseClosedHandle
}

// SetPacketTime changes the minimum break-to-break interval used in async
// mode. It takes effect on the agent's next cycle.
func (sf *DMXSerial) SetPacketTime(d time.Duration) error {
	if err := sf.cfg.checkPacketTime(d); err != nil {
		return err
	}
	sf.packetTime.Store(int64(d))
	return nil
}

// PacketTime returns the minimum break-to-break interval.
func (sf *DMXSerial) PacketTime() time.Duration {
	return time.Duration(sf.packetTime.Load())
}

// Alive reports whether the transmission agent is still running.
func (sf *DMXSerial) Alive() bool {
	select {
	case <-sf.done:
		return false
	default:
		return true
	}
}

// Done is closed when the agent has stopped and released the port, either
// after Close or after a transmission fault.
func (sf *DMXSerial) Done() <-chan struct{} {
	return sf.done
}

// Err returns the *TransmissionFault that stopped the agent, or nil.
func (sf *DMXSerial) Err() error {
	sf.errMux.Lock()
	defer sf.errMux.Unlock()
	return sf.err
}

// ID returns the session identifier used in this handle's log prefix.
func (sf *DMXSerial) ID() string {
	return sf.id
}

// PortName returns the serial device name.
func (sf *DMXSerial) PortName() string {
	return sf.cfg.Port
}

// Config returns the validated configuration the handle was opened with.
func (sf *DMXSerial) Config() Config {
	return sf.cfg
}

// Close stops the transmission agent after its in-flight frame and releases
// the serial port. It is safe to call more than once.
func (sf *DMXSerial) Close() error {
	sf.closeOnce.Do(func() {
		sf.Debug("Close requested.")
		sf.cancel()
	})
	<-sf.done
	return sf.closeErr
}
