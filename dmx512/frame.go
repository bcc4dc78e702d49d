// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// DMX512 frame constants
const (
	// StartCode is the null start code for dimmer data.
	StartCode byte = 0x00
	// FrameLen is the start code plus one full universe.
	FrameLen = 1 + Channels
)

// Universe holds the 512 channel values; index 0 is DMX channel 1.
type Universe [Channels]byte

// EncodeFrame returns the 513 byte slot sequence for u: the start code
// followed by every channel in order.
func EncodeFrame(u *Universe) []byte {
	buf := make([]byte, FrameLen)
	buf[0] = StartCode
	copy(buf[1:], u[:])
	return buf
}

// EncodeShortFrame returns the start code followed by the channels up to
// and including the last non-zero one. At least one channel is always sent.
func EncodeShortFrame(u *Universe) []byte {
	last := 0
	for i := Channels - 1; i > 0; i-- {
		if u[i] != 0 {
			last = i
			break
		}
	}
	buf := make([]byte, last+2)
	buf[0] = StartCode
	copy(buf[1:], u[:last+1])
	return buf
}

// encoder puts frames on the wire: break, mark-after-break, slots.
type encoder struct {
	port      Port
	breakMode *serial.Mode
	dataMode  *serial.Mode
	mab       time.Duration
	short     bool
	frame     [FrameLen]byte
}

func newEncoder(port Port, cfg *Config) *encoder {
	return &encoder{
		port:      port,
		breakMode: cfg.Break.Mode(),
		dataMode:  cfg.Data.Mode(),
		mab:       cfg.MarkAfterBreak,
		short:     cfg.ShortFrame,
	}
}

// send transmits one frame for u. Any failure aborts the cycle and is
// returned as a *TransmissionFault; nothing is retried here.
func (sf *encoder) send(u *Universe) error {
	if err := sf.sendBreak(); err != nil {
		return err
	}
	waitFor(sf.mab)

	data := sf.frame[:]
	sf.frame[0] = StartCode
	copy(sf.frame[1:], u[:])
	if sf.short {
		data = EncodeShortFrame(u)
	}
	return sf.sendData(data)
}

func (sf *encoder) sendBreak() error {
	if err := sf.port.SetMode(sf.breakMode); err != nil {
		return &TransmissionFault{Op: "break mode", Err: err}
	}
	if err := writeFull(sf.port, []byte{0x00}); err != nil {
		return &TransmissionFault{Op: "break write", Err: err}
	}
	if err := sf.port.Drain(); err != nil {
		return &TransmissionFault{Op: "drain", Err: err}
	}
	return nil
}

func (sf *encoder) sendData(data []byte) error {
	if err := sf.port.SetMode(sf.dataMode); err != nil {
		return &TransmissionFault{Op: "data mode", Err: err}
	}
	if err := writeFull(sf.port, data); err != nil {
		return &TransmissionFault{Op: "data write", Err: err}
	}
	if err := sf.port.Drain(); err != nil {
		return &TransmissionFault{Op: "drain", Err: err}
	}
	return nil
}

// writeFull keeps writing until data is out. A zero length write with no
// error would spin forever, so it is reported as io.ErrShortWrite.
func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
