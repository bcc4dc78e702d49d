// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package dmx512

// Controller is the channel surface application code drives
// (GUIs, effect generators). DMXSerial implements it.
type Controller interface {
	SetChannel(channel int, value byte) error
	GetChannel(channel int) (byte, error)
	SetChannels(u Universe)
	GetChannels() Universe
	SetRange(start int, values []byte) error
	ResetChannels()
}

// Updater paces a sync mode transmitter, one frame per call.
type Updater interface {
	Update() error
}

var (
	_ Controller = (*DMXSerial)(nil)
	_ Updater    = (*DMXSerial)(nil)
)
