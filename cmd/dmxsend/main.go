// Copyright 2025 Ricardo L. Olsen. All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Command dmxsend drives a DMX512 universe from a serial adapter.
//
// In async mode it runs a chase across the patched fixtures; in sync mode
// a metronome strobes all fixtures and sends one frame per beat.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riclolsen/go-dmx512/clog"
	"github.com/riclolsen/go-dmx512/dmx512"
	"github.com/riclolsen/go-dmx512/timing"
)

const chaseStep = 100 * time.Millisecond

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		port       = flag.String("port", "", "serial device, e.g. /dev/ttyUSB0 or COM4")
		list       = flag.Bool("list", false, "list serial ports and exit")
		syncMode   = flag.Bool("sync", false, "send one frame per metronome beat")
		bpm        = flag.Float64("bpm", 0, "metronome tempo in sync mode")
		packet     = flag.Duration("packet", 0, "minimum break-to-break time in async mode")
		short      = flag.Bool("short", false, "trim trailing zero channels from frames")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	if *list {
		ports, err := dmx512.ListPorts()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get serial ports")
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	sc, err := loadShowConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	// flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			sc.Port = *port
		case "sync":
			if *syncMode {
				sc.Mode = "sync"
			} else {
				sc.Mode = "async"
			}
		case "bpm":
			sc.BPM = *bpm
		case "packet":
			sc.PacketTime.Duration = *packet
		case "short":
			sc.ShortFrame = *short
		}
	})
	if err := sc.check(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	cfg, err := sc.dmxConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	fixtures, err := sc.patchFixtures()
	if err != nil {
		log.Fatal().Err(err).Msg("patch")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	option := dmx512.NewOption().
		SetConfig(cfg).
		SetLogMode(*debug).
		SetLogProvider(clog.NewZerologProviderFrom(log.Logger, "dmx512 => ")).
		SetFaultHandler(func(d *dmx512.DMXSerial, err error) {
			log.Error().Str("device", d.PortName()).Err(err).Msg("transmission stopped")
			stop()
		})

	d, err := dmx512.OpenWithOption(option)
	if err != nil {
		log.Fatal().Err(err).Msg("open")
	}
	log.Info().Str("device", d.PortName()).Str("session", d.ID()).
		Str("mode", cfg.Mode.String()).Ints("fixtures", fixtures).Msg("transmitting")

	if d.IsSync() {
		err = runStrobe(ctx, d, fixtures, sc)
	} else {
		runChase(ctx, d, fixtures, sc.FixtureWidth)
	}
	if err != nil {
		log.Error().Err(err).Msg("show")
	}

	st := d.Stats()
	if err := d.Close(); err != nil {
		log.Error().Err(err).Msg("close")
	}
	log.Info().Uint64("frames", st.Frames).Uint64("updates", st.Updates).
		Uint64("faults", st.Faults).Msg("shutdown complete")
	if d.Err() != nil {
		os.Exit(1)
	}
}

// fixtureLevels returns a universe with every channel of the selected
// fixtures at level.
func fixtureLevels(fixtures []int, width int, level byte, selected func(i int) bool) dmx512.Universe {
	var u dmx512.Universe
	for i, start := range fixtures {
		if !selected(i) {
			continue
		}
		for ch := start; ch < start+width; ch++ {
			u[ch-1] = level
		}
	}
	return u
}

// runChase lights one fixture at a time while the agent free-runs.
func runChase(ctx context.Context, d *dmx512.DMXSerial, fixtures []int, width int) {
	t := time.NewTicker(chaseStep)
	defer t.Stop()
	for step := 0; ; step++ {
		active := step % len(fixtures)
		d.SetChannels(fixtureLevels(fixtures, width, 255, func(i int) bool { return i == active }))
		select {
		case <-ctx.Done():
			return
		case <-d.Done():
			return
		case <-t.C:
		}
	}
}

// runStrobe flips all fixtures on and off, one frame per beat.
func runStrobe(ctx context.Context, d *dmx512.DMXSerial, fixtures []int, sc showConfig) error {
	m := timing.NewMetronome(sc.BPM)
	m.SetLogProvider(clog.NewZerologProviderFrom(log.Logger, ""))
	m.LogMode(log.Logger.GetLevel() <= zerolog.DebugLevel)

	on := false
	all := func(int) bool { return true }
	m.SetCallback(func() {
		on = !on
		var level byte
		if on {
			level = 255
		}
		d.SetChannels(fixtureLevels(fixtures, sc.FixtureWidth, level, all))
		uctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := d.UpdateContext(uctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("update")
		}
	})
	if err := m.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return m.Stop()
}
