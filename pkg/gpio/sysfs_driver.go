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

package gpio

import (
	"context"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/binkynet/PortDriver/pkg/s32k144"
)

const (
	// Interval between polls of input lines with an event trigger
	sysfsPollInterval = time.Millisecond * 50
	sysfsUnexportPath = "/sys/class/gpio/unexport"
)

type inputLine interface {
	Read() (bool, error)
}

type outputLine interface {
	Write(bool) error
}

// SysfsDriver implements Driver on top of the Linux sysfs GPIO interface.
// Physical pin n of port p is exported as line p*32+n.
// Edge events are detected by polling.
type SysfsDriver struct {
	log   zerolog.Logger
	table *PinTable
	mutex sync.Mutex
	lines map[PinID]*sysfsLine

	openInput  func(line int) (inputLine, error)
	openOutput func(line int, initialValue bool) (outputLine, error)
	unexport   func(line int) error
}

type sysfsLine struct {
	id      PinID
	desc    Descriptor
	number  int
	input   inputLine
	output  outputLine
	trigger Trigger
	cb      SignalEvent
	level   bool
	primed  bool
}

var _ Driver = &SysfsDriver{}

// NewSysfsDriver creates a sysfs driver for the pins in the given table.
func NewSysfsDriver(table *PinTable, log zerolog.Logger) *SysfsDriver {
	const activeLow = false
	return &SysfsDriver{
		log:   log.With().Str("component", "gpio-sysfs").Logger(),
		table: table,
		lines: make(map[PinID]*sysfsLine),
		openInput: func(line int) (inputLine, error) {
			return gpio.Input(line, activeLow)
		},
		openOutput: func(line int, initialValue bool) (outputLine, error) {
			return gpio.Output(line, activeLow, initialValue)
		},
		unexport: func(line int) error {
			return os.WriteFile(sysfsUnexportPath, []byte(strconv.Itoa(line)), 0644)
		},
	}
}

// line returns the line state of the given pin, creating it when needed.
// Caller must hold the mutex.
func (d *SysfsDriver) line(op string, pin PinID) (*sysfsLine, error) {
	desc, err := d.table.Lookup(pin)
	if err != nil {
		errorsTotal.WithLabelValues(op).Inc()
		return nil, err
	}
	l, found := d.lines[pin]
	if !found {
		l = &sysfsLine{
			id:     pin,
			desc:   desc,
			number: int(desc.Port)*s32k144.PinsPerPort + int(desc.Pin),
		}
		d.lines[pin] = l
	}
	return l, nil
}

func (d *SysfsDriver) invalid(op string, format string, args ...interface{}) error {
	errorsTotal.WithLabelValues(op).Inc()
	return maskAny(errors.Wrapf(InvalidParameterError, format, args...))
}

// Setup registers cb (when not nil) for events on the pin.
func (d *SysfsDriver) Setup(pin PinID, cb SignalEvent) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	l, err := d.line("setup", pin)
	if err != nil {
		return err
	}
	if cb != nil {
		l.cb = cb
	}
	return nil
}

// SetDirection opens the line as input or output.
func (d *SysfsDriver) SetDirection(pin PinID, direction Direction) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	l, err := d.line("direction", pin)
	if err != nil {
		return err
	}
	switch direction {
	case DirectionInput:
		in, err := d.openInput(l.number)
		if err != nil {
			errorsTotal.WithLabelValues("direction").Inc()
			return maskAny(errors.Wrapf(err, "failed to open line %d as input", l.number))
		}
		l.input, l.output, l.primed = in, nil, false
	case DirectionOutput:
		out, err := d.openOutput(l.number, false)
		if err != nil {
			errorsTotal.WithLabelValues("direction").Inc()
			return maskAny(errors.Wrapf(err, "failed to open line %d as output", l.number))
		}
		l.input, l.output = nil, out
	default:
		return d.invalid("direction", "invalid direction %d", direction)
	}
	return nil
}

// SetOutputMode accepts push-pull only.
func (d *SysfsDriver) SetOutputMode(pin PinID, mode OutputMode) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, err := d.line("output_mode", pin); err != nil {
		return err
	}
	if mode != OutputPushPull {
		return d.invalid("output_mode", "unsupported output mode %d", mode)
	}
	return nil
}

// SetPullResistor validates pull; sysfs has no pull resistor control.
func (d *SysfsDriver) SetPullResistor(pin PinID, pull PullResistor) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, err := d.line("pull", pin); err != nil {
		return err
	}
	switch pull {
	case PullNone, PullUp, PullDown:
		return nil
	default:
		return d.invalid("pull", "invalid pull resistor %d", pull)
	}
}

// SetEventTrigger selects the transitions that Run reports for the pin.
func (d *SysfsDriver) SetEventTrigger(pin PinID, trigger Trigger) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	l, err := d.line("trigger", pin)
	if err != nil {
		return err
	}
	switch trigger {
	case TriggerNone, TriggerRisingEdge, TriggerFallingEdge, TriggerEitherEdge:
		l.trigger = trigger
		l.primed = false
		return nil
	default:
		return d.invalid("trigger", "invalid event trigger %d", trigger)
	}
}

// SetOutput writes the output line of the pin.
func (d *SysfsDriver) SetOutput(pin PinID, value bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	l, err := d.line("output", pin)
	if err != nil || l.output == nil {
		return
	}
	if err := l.output.Write(value); err != nil {
		errorsTotal.WithLabelValues("output").Inc()
		d.log.Debug().Err(err).Int("line", l.number).Msg("Write failed")
	}
}

// GetInput reads the input line of the pin.
func (d *SysfsDriver) GetInput(pin PinID) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	l, err := d.line("input", pin)
	if err != nil {
		return false, err
	}
	if l.input == nil {
		return false, d.invalid("input", "pin %s is not configured as input", d.table.Name(pin))
	}
	value, err := l.input.Read()
	if err != nil {
		errorsTotal.WithLabelValues("input").Inc()
		return false, maskAny(err)
	}
	return value, nil
}

// Run polls input lines with an event trigger until the given context
// is canceled.
func (d *SysfsDriver) Run(ctx context.Context) error {
	ticker := time.NewTicker(sysfsPollInterval)
	defer ticker.Stop()
	for {
		d.poll()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type sysfsEvent struct {
	id    PinID
	cb    SignalEvent
	desc  Descriptor
	event Event
}

// sortedLines returns all lines ordered by port, then physical pin.
// Caller must hold the mutex.
func (d *SysfsDriver) sortedLines() []*sysfsLine {
	lines := lo.Values(d.lines)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].number < lines[j].number
	})
	return lines
}

// poll reads all triggered input lines once and signals the matching
// transitions, in ascending physical pin order per port.
func (d *SysfsDriver) poll() {
	var events []sysfsEvent
	d.mutex.Lock()
	for _, l := range d.sortedLines() {
		if l.input == nil || l.trigger == TriggerNone || l.cb == nil {
			continue
		}
		level, err := l.input.Read()
		if err != nil {
			d.log.Debug().Err(err).Int("line", l.number).Msg("Read failed")
			continue
		}
		if l.primed && level != l.level {
			if event, ok := transitionEvent(l.trigger, level); ok {
				events = append(events, sysfsEvent{id: l.id, cb: l.cb, desc: l.desc, event: event})
			}
		}
		l.level, l.primed = level, true
	}
	d.mutex.Unlock()

	for _, e := range events {
		eventsTotal.WithLabelValues(d.table.Name(e.id)).Inc()
		e.cb(NewEventID(e.desc.Port, e.desc.Pin), e.event)
	}
}

// transitionEvent returns the event for a transition to the given level,
// if the trigger selects it.
func transitionEvent(trigger Trigger, level bool) (Event, bool) {
	switch trigger {
	case TriggerRisingEdge:
		return EventRisingEdge, level
	case TriggerFallingEdge:
		return EventFallingEdge, !level
	case TriggerEitherEdge:
		return EventEitherEdge, true
	default:
		return 0, false
	}
}

// Close unexports all lines that were opened.
func (d *SysfsDriver) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var ae aerr.AggregateError
	for _, l := range d.sortedLines() {
		if l.input == nil && l.output == nil {
			continue
		}
		if err := d.unexport(l.number); err != nil {
			ae.Add(errors.Wrapf(err, "failed to unexport line %d", l.number))
		}
		l.input, l.output = nil, nil
	}
	return ae.AsError()
}
