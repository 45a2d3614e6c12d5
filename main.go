// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/PortDriver/pkg/board"
	"github.com/binkynet/PortDriver/pkg/environment"
	"github.com/binkynet/PortDriver/pkg/gpio"
	"github.com/binkynet/PortDriver/pkg/logging"
	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/regs"
	"github.com/binkynet/PortDriver/pkg/s32k144"
	"github.com/binkynet/PortDriver/pkg/server"
	"github.com/binkynet/PortDriver/pkg/sim"
)

const (
	projectName       = "BinkyNet Port Driver"
	defaultServerPort = 7130
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

// backend is the hardware side of the worker.
type backend struct {
	driver gpio.Driver
	sim    server.Simulator
	runs   []func(ctx context.Context) error
	close  func() error
}

func main() {
	var levelFlag string
	var logFile string
	var backendType string
	var devMemPath string
	var serverHost string
	var serverPort int
	var irqPriority uint8
	var pollInterval time.Duration
	var activeLowLEDs bool

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVar(&logFile, "log-file", "", "Append JSON logs to this file")
	pflag.StringVarP(&backendType, "backend", "b", "", "Type of backend to use (sim|devmem|sysfs), detected when empty")
	pflag.StringVar(&devMemPath, "devmem", "/dev/mem", "Path of the physical memory device")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.Uint8Var(&irqPriority, "irq-priority", 2, "Interrupt priority of the ports (0-15)")
	pflag.DurationVar(&pollInterval, "poll-interval", time.Millisecond*10, "Interval between interrupt flag polls (devmem)")
	pflag.BoolVar(&activeLowLEDs, "active-low-leds", true, "LEDs light up when driven low")
	pflag.Parse()

	logger, logCloser, err := logging.New(logging.Config{
		Level: levelFlag,
		File:  logFile,
	})
	if err != nil {
		Exitf("Failed to initialize logging: %v\n", err)
	}
	defer logCloser.Close()

	if irqPriority > nvic.MaxPriority {
		Exitf("Invalid --irq-priority %d, expected 0-%d\n", irqPriority, nvic.MaxPriority)
	}

	table, err := board.DefaultPinTable()
	if err != nil {
		Exitf("Failed to build pin table: %v\n", err)
	}

	if backendType == "" {
		backendType = environment.AutoDetectBackend(logger)
	}
	var be backend
	switch backendType {
	case environment.BackendSim:
		be = newSimBackend(table, irqPriority, logger)
	case environment.BackendDevMem:
		be, err = newDevMemBackend(table, devMemPath, irqPriority, pollInterval, logger)
		if err != nil {
			Exitf("Failed to initialize devmem backend: %v\n", err)
		}
	case environment.BackendSysfs:
		be = newSysfsBackend(table, logger)
	default:
		Exitf("Unknown backend type '%s' (sim|devmem|sysfs)\n", backendType)
	}
	defer be.close()

	b, err := board.New(board.Config{
		ActiveLowLEDs: activeLowLEDs,
	}, board.Dependencies{
		Log:    logger,
		Driver: be.driver,
		Table:  table,
	})
	if err != nil {
		Exitf("Failed to initialize board: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host: serverHost,
		Port: serverPort,
	}, logger, b, be.sim)
	if err != nil {
		Exitf("Failed to initialize server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s, backend %s)\n", projectName, projectVersion, projectBuild, backendType)
	if err := b.Configure(ctx); err != nil {
		logger.Error().Err(err).Msg("Not all pins could be configured")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	for _, run := range be.runs {
		run := run
		g.Go(func() error { return run(ctx) })
	}
	if err := g.Wait(); err != nil {
		Exitf("Worker run failed: %#v\n", err)
	}
	if err := b.Close(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to close board")
	}
}

// newSimBackend runs the worker on a simulated chip.
func newSimBackend(table *gpio.PinTable, priority uint8, log zerolog.Logger) backend {
	chip := sim.New(log)
	ports := port.NewPorts(chip, nvic.New(chip), log)
	for _, id := range port.All {
		ports.SetPriority(id, priority)
	}
	chip.InstallVectors(ports.Vector())
	return backend{
		driver: gpio.NewPortDriver(table, ports, log),
		sim:    chip,
		close:  func() error { return nil },
	}
}

// newDevMemBackend maps the PCC, PORT, GPIO and NVIC register blocks.
// Interrupt flags are polled, since Linux owns the interrupt vectors.
func newDevMemBackend(table *gpio.PinTable, path string, priority uint8, pollInterval time.Duration, log zerolog.Logger) (backend, error) {
	blocks := []struct {
		base, size uint32
	}{
		{s32k144.PCCBase, s32k144.PCCIndexPortE*4 + 4},
		{s32k144.PortABase, s32k144.PortCount * s32k144.PortBlockSize},
		{s32k144.PTABase, s32k144.PortCount * s32k144.GPIOBlockSize},
		{s32k144.NVICBase, s32k144.NVICBlockSize},
	}
	var windows regs.Windows
	for _, x := range blocks {
		w, err := regs.OpenDevMem(path, x.base, x.size)
		if err != nil {
			windows.Close()
			return backend{}, maskAny(err)
		}
		windows = append(windows, w)
	}
	ic := nvic.New(windows)
	ports := port.NewPorts(windows, ic, log)
	for _, id := range port.All {
		ports.SetPriority(id, priority)
	}
	return backend{
		driver: gpio.NewPortDriver(table, ports, log),
		runs: []func(ctx context.Context) error{
			func(ctx context.Context) error { return ports.Poll(ctx, pollInterval) },
		},
		close: windows.Close,
	}, nil
}

// newSysfsBackend drives the pins through Linux sysfs GPIO.
func newSysfsBackend(table *gpio.PinTable, log zerolog.Logger) backend {
	d := gpio.NewSysfsDriver(table, log)
	return backend{
		driver: d,
		runs:   []func(ctx context.Context) error{d.Run},
		close:  d.Close,
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
