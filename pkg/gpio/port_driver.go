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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// PortDriver implements Driver on top of the PORT and GPIO registers.
type PortDriver struct {
	log   zerolog.Logger
	table *PinTable
	ports *port.Ports

	// Registration is serialized by mutex, dispatch reads handlers lock free.
	mutex       sync.Mutex
	handlers    [s32k144.PortCount]atomic.Pointer[[]handler]
	trampolines [s32k144.PortCount]port.Callback
}

type handler struct {
	id     PinID
	pin    uint8
	cb     SignalEvent
	events prometheus.Counter
}

var _ Driver = &PortDriver{}

// NewPortDriver creates a driver for the pins in the given table.
func NewPortDriver(table *PinTable, ports *port.Ports, log zerolog.Logger) *PortDriver {
	d := &PortDriver{
		log:   log.With().Str("component", "gpio").Logger(),
		table: table,
		ports: ports,
	}
	for _, id := range port.All {
		id := id
		d.trampolines[id] = func(pin uint8) { d.dispatch(id, pin) }
	}
	for _, id := range table.Unavailable() {
		d.log.Warn().Str("pin", table.Name(id)).Msg("Pin is not available")
	}
	return d
}

// Table returns the pin table of the driver.
func (d *PortDriver) Table() *PinTable {
	return d.table
}

// resolve the given logical pin to its descriptor and port controller.
func (d *PortDriver) resolve(op string, pin PinID) (Descriptor, *port.Controller, error) {
	desc, err := d.table.Lookup(pin)
	if err != nil {
		errorsTotal.WithLabelValues(op).Inc()
		return Descriptor{}, nil, err
	}
	return desc, d.ports.Get(desc.Port), nil
}

func (d *PortDriver) invalid(op string, format string, args ...interface{}) error {
	errorsTotal.WithLabelValues(op).Inc()
	return maskAny(errors.Wrapf(InvalidParameterError, format, args...))
}

// Setup enables the port clock, selects the GPIO function and registers
// cb (when not nil) for events on the pin.
func (d *PortDriver) Setup(pin PinID, cb SignalEvent) error {
	desc, ctrl, err := d.resolve("setup", pin)
	if err != nil {
		return err
	}
	ctrl.EnableClock()
	ctrl.PinMux(desc.Pin, port.MuxGPIO)
	if cb != nil {
		d.register(pin, desc, cb)
		ctrl.RegisterCallback(d.trampolines[desc.Port])
	}
	d.log.Debug().
		Str("pin", d.table.Name(pin)).
		Str("phys", desc.String()).
		Bool("callback", cb != nil).
		Msg("Setup pin")
	return nil
}

// register stores cb in the handler table of the port of desc,
// replacing an earlier registration of the same logical pin.
func (d *PortDriver) register(pin PinID, desc Descriptor, cb SignalEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var list []handler
	if current := d.handlers[desc.Port].Load(); current != nil {
		list = make([]handler, 0, len(*current)+1)
		for _, h := range *current {
			if h.id != pin {
				list = append(list, h)
			}
		}
	}
	list = append(list, handler{
		id:     pin,
		pin:    desc.Pin,
		cb:     cb,
		events: eventsTotal.WithLabelValues(d.table.Name(pin)),
	})
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	d.handlers[desc.Port].Store(&list)
}

// dispatch is called from interrupt context for every flagged pin of a port.
func (d *PortDriver) dispatch(id port.ID, pin uint8) {
	list := d.handlers[id].Load()
	if list == nil {
		return
	}
	var event Event
	evaluated := false
	for _, h := range *list {
		if h.pin != pin {
			continue
		}
		if !evaluated {
			event = eventOf(d.ports.Get(id).InterruptConfig(pin))
			evaluated = true
		}
		h.events.Inc()
		h.cb(NewEventID(id, pin), event)
	}
}

// eventOf returns the event reported for a pin with the given interrupt
// configuration.
func eventOf(cfg port.IRQConfig) Event {
	switch cfg {
	case port.IRQRising, port.IRQDMARising:
		return EventRisingEdge
	case port.IRQFalling, port.IRQDMAFalling:
		return EventFallingEdge
	default:
		return EventEitherEdge
	}
}

// SetDirection configures the pin as input or output.
// A set PDDR bit makes the pin an output.
func (d *PortDriver) SetDirection(pin PinID, direction Direction) error {
	desc, ctrl, err := d.resolve("direction", pin)
	if err != nil {
		return err
	}
	switch direction {
	case DirectionInput:
		ctrl.SetDirection(desc.Pin, false)
	case DirectionOutput:
		ctrl.SetDirection(desc.Pin, true)
	default:
		return d.invalid("direction", "invalid direction %d", direction)
	}
	return nil
}

// SetOutputMode configures the output driver of the pin.
// Only push-pull is supported.
func (d *PortDriver) SetOutputMode(pin PinID, mode OutputMode) error {
	if _, _, err := d.resolve("output_mode", pin); err != nil {
		return err
	}
	switch mode {
	case OutputPushPull:
		return nil
	case OutputOpenDrain:
		return d.invalid("output_mode", "open-drain output is not supported")
	default:
		return d.invalid("output_mode", "invalid output mode %d", mode)
	}
}

// SetPullResistor configures the internal pull resistor of the pin.
func (d *PortDriver) SetPullResistor(pin PinID, pull PullResistor) error {
	desc, ctrl, err := d.resolve("pull", pin)
	if err != nil {
		return err
	}
	switch pull {
	case PullNone:
		ctrl.PullConfig(desc.Pin, false, false)
	case PullUp:
		ctrl.PullConfig(desc.Pin, true, true)
	case PullDown:
		ctrl.PullConfig(desc.Pin, true, false)
	default:
		return d.invalid("pull", "invalid pull resistor %d", pull)
	}
	return nil
}

// SetEventTrigger selects the edges that raise events on the pin and
// arms the port interrupt.
func (d *PortDriver) SetEventTrigger(pin PinID, trigger Trigger) error {
	desc, ctrl, err := d.resolve("trigger", pin)
	if err != nil {
		return err
	}
	var cfg port.IRQConfig
	switch trigger {
	case TriggerNone:
		cfg = port.IRQDisabled
	case TriggerRisingEdge:
		cfg = port.IRQRising
	case TriggerFallingEdge:
		cfg = port.IRQFalling
	case TriggerEitherEdge:
		cfg = port.IRQEither
	default:
		return d.invalid("trigger", "invalid event trigger %d", trigger)
	}
	ctrl.PinInterruptConfig(desc.Pin, cfg)
	return nil
}

// SetOutput drives the pin high or low through the set/clear registers.
func (d *PortDriver) SetOutput(pin PinID, value bool) {
	desc, ctrl, err := d.resolve("output", pin)
	if err != nil {
		return
	}
	if value {
		ctrl.SetPins(1 << desc.Pin)
	} else {
		ctrl.ClearPins(1 << desc.Pin)
	}
}

// GetInput returns the current level of the pin.
func (d *PortDriver) GetInput(pin PinID) (bool, error) {
	desc, ctrl, err := d.resolve("input", pin)
	if err != nil {
		return false, err
	}
	return (ctrl.ReadPins()>>desc.Pin)&1 == 1, nil
}
