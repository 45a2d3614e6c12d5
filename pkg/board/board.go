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

// Package board contains the application of the S32K144 evaluation board:
// two buttons toggle the red and green LEDs, the blue LED blinks on activity.
package board

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/binkynet/PortDriver/pkg/gpio"
)

var (
	// NotFoundError is returned when a pin name is unknown to the board.
	NotFoundError = errors.New("not found")
	IsNotFound    = isErrorFunc(NotFoundError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// Config of the board.
type Config struct {
	// If set, LEDs light up when their pin is driven low.
	ActiveLowLEDs bool
	// Interval between checks for activity
	ActivityInterval time.Duration
	// Number of idle intervals after which the activity LED is turned off
	IdleIntervals int
}

// Dependencies of the board.
type Dependencies struct {
	Log    zerolog.Logger
	Driver gpio.Driver
	Table  *gpio.PinTable
}

// Board runs the application.
type Board struct {
	Config
	log       zerolog.Logger
	driver    gpio.Driver
	table     *gpio.PinTable
	ledMutex  sync.Mutex // Serializes LED state changes with their output writes
	leds      map[gpio.PinID]*atomic.Bool
	presses   map[gpio.PinID]*atomic.Uint64
	lastPress map[gpio.PinID]*atomic.Int64 // Unix nanoseconds
	activity  atomic.Uint32
	startedAt time.Time
}

// New creates a new board.
func New(cfg Config, deps Dependencies) (*Board, error) {
	if deps.Driver == nil || deps.Table == nil {
		return nil, maskAny(errors.New("Driver and Table must be set"))
	}
	if cfg.ActivityInterval <= 0 {
		cfg.ActivityInterval = time.Second / 10
	}
	if cfg.IdleIntervals <= 0 {
		cfg.IdleIntervals = 20
	}
	b := &Board{
		Config:    cfg,
		log:       deps.Log.With().Str("component", "board").Logger(),
		driver:    deps.Driver,
		table:     deps.Table,
		leds:      make(map[gpio.PinID]*atomic.Bool),
		presses:   make(map[gpio.PinID]*atomic.Uint64),
		lastPress: make(map[gpio.PinID]*atomic.Int64),
		startedAt: time.Now(),
	}
	for _, id := range LEDs {
		b.leds[id] = &atomic.Bool{}
	}
	for id := range Buttons {
		b.presses[id] = &atomic.Uint64{}
		b.lastPress[id] = &atomic.Int64{}
	}
	return b, nil
}

// Table returns the pin table of the board.
func (b *Board) Table() *gpio.PinTable {
	return b.table
}

// Configure puts all pins in their initial state.
// It continues on failure and returns all errors that occurred.
func (b *Board) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	configured := 0
	for _, id := range LEDs {
		log := b.log.With().Str("pin", b.table.Name(id)).Logger()
		if err := b.configureLED(id); err != nil {
			log.Error().Err(err).Msg("Failed to configure LED")
			ae.Add(err)
		} else {
			configured++
			log.Debug().Msg("configured LED")
		}
	}
	for _, id := range buttonIDs() {
		log := b.log.With().Str("pin", b.table.Name(id)).Logger()
		if err := b.configureButton(id); err != nil {
			log.Error().Err(err).Msg("Failed to configure button")
			ae.Add(err)
		} else {
			configured++
			log.Debug().Msg("configured button")
		}
	}
	configuredPinsGauge.Set(float64(configured))
	b.log.Info().Int("count", configured).Msg("Configured pins")
	return ae.AsError()
}

// buttonIDs returns all buttons in ascending order.
func buttonIDs() []gpio.PinID {
	ids := lo.Keys(Buttons)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Board) configureLED(id gpio.PinID) error {
	if err := b.driver.Setup(id, nil); err != nil {
		return maskAny(err)
	}
	if err := b.driver.SetDirection(id, gpio.DirectionOutput); err != nil {
		return maskAny(err)
	}
	b.setLED(id, false)
	return nil
}

func (b *Board) configureButton(id gpio.PinID) error {
	if err := b.driver.Setup(id, b.buttonHandler(id)); err != nil {
		return maskAny(err)
	}
	if err := b.driver.SetDirection(id, gpio.DirectionInput); err != nil {
		return maskAny(err)
	}
	if err := b.driver.SetPullResistor(id, gpio.PullUp); err != nil {
		return maskAny(err)
	}
	if err := b.driver.SetEventTrigger(id, gpio.TriggerFallingEdge); err != nil {
		return maskAny(err)
	}
	return nil
}

// buttonHandler returns the event handler of the given button.
// It runs in interrupt context.
func (b *Board) buttonHandler(id gpio.PinID) gpio.SignalEvent {
	led := Buttons[id]
	presses := b.presses[id]
	lastPress := b.lastPress[id]
	pressesTotal := buttonPressesTotal.WithLabelValues(b.table.Name(id))
	return func(gpio.EventID, gpio.Event) {
		presses.Add(1)
		lastPress.Store(time.Now().UnixNano())
		pressesTotal.Inc()
		b.toggleLED(led)
		b.onActive()
	}
}

// onActive records activity, shown on the blue LED.
func (b *Board) onActive() {
	b.activity.Add(1)
}

// setLED turns the given LED on or off.
func (b *Board) setLED(id gpio.PinID, on bool) {
	b.ledMutex.Lock()
	defer b.ledMutex.Unlock()
	b.writeLED(id, on)
}

// toggleLED inverts the given LED.
func (b *Board) toggleLED(id gpio.PinID) {
	b.ledMutex.Lock()
	defer b.ledMutex.Unlock()
	b.writeLED(id, !b.leds[id].Load())
}

// writeLED stores and outputs the LED state.
// Caller must hold ledMutex.
func (b *Board) writeLED(id gpio.PinID, on bool) {
	b.leds[id].Store(on)
	b.driver.SetOutput(id, on != b.ActiveLowLEDs)
	ledStateGauge.WithLabelValues(b.table.Name(id)).Set(lo.Ternary(on, 1.0, 0.0))
}

// SetLED turns the LED with the given name on or off.
func (b *Board) SetLED(name string, on bool) error {
	id, found := b.table.ByName(name)
	if !found || b.leds[id] == nil {
		return maskAny(errors.Wrapf(NotFoundError, "LED '%s'", name))
	}
	b.setLED(id, on)
	b.onActive()
	return nil
}

// Run blinks the blue LED while there is activity, until the given
// context is canceled.
func (b *Board) Run(ctx context.Context) error {
	lastActivity := b.activity.Load()
	idle := 0
	blink := false
	for {
		select {
		case <-ctx.Done():
			// Context canceled
			return nil
		case <-time.After(b.ActivityInterval):
			activity := b.activity.Load()
			if activity != lastActivity {
				lastActivity = activity
				blink = !blink
				b.setLED(LEDBlue, blink)
				activityBlinksTotal.Inc()
				idle = 0
			} else if idle < b.IdleIntervals {
				idle++
			} else if blink {
				blink = false
				b.setLED(LEDBlue, false)
			}
		}
	}
}

// PinStatus is the state of a single pin.
type PinStatus struct {
	Name      string `json:"name"`
	Pin       string `json:"pin"`
	Kind      string `json:"kind"`
	On        bool   `json:"on"`
	Presses   uint64 `json:"presses,omitempty"`
	LastPress string `json:"last_press,omitempty"`
}

// Status is the state of the board.
type Status struct {
	Pins      []PinStatus `json:"pins"`
	Activity  uint32      `json:"activity"`
	StartedAt string      `json:"started_at"`
}

// Status returns the state of all pins.
func (b *Board) Status() Status {
	pins := lo.FilterMap(b.table.IDs(), func(id gpio.PinID, _ int) (PinStatus, bool) {
		e, _ := b.table.Entry(id)
		ps := PinStatus{Name: e.Name, Pin: e.Descriptor.String()}
		if state, found := b.leds[id]; found {
			ps.Kind = "led"
			ps.On = state.Load()
			return ps, true
		}
		if presses, found := b.presses[id]; found {
			ps.Kind = "button"
			ps.Presses = presses.Load()
			if last := b.lastPress[id].Load(); last != 0 {
				ps.LastPress = humanize.Time(time.Unix(0, last))
			}
			if level, err := b.driver.GetInput(id); err == nil {
				ps.On = !level
			}
			return ps, true
		}
		return ps, false
	})
	return Status{
		Pins:      pins,
		Activity:  b.activity.Load(),
		StartedAt: humanize.Time(b.startedAt),
	}
}

// Close turns off all LEDs and disarms the buttons.
func (b *Board) Close(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, id := range buttonIDs() {
		if err := b.driver.SetEventTrigger(id, gpio.TriggerNone); err != nil {
			ae.Add(errors.Wrapf(err, "failed to disarm %s", b.table.Name(id)))
		}
	}
	for _, id := range LEDs {
		if _, err := b.table.Lookup(id); err != nil {
			ae.Add(err)
			continue
		}
		b.setLED(id, false)
	}
	return ae.AsError()
}
