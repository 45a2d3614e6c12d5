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

// Package gpio is the pin abstraction layer. It addresses pins by logical
// identifier, resolves them through a PinTable and drives them through a
// Driver.
package gpio

import (
	"github.com/binkynet/PortDriver/pkg/port"
)

// PinID is a logical pin identifier, defined by the application.
type PinID uint32

// Direction of a pin.
type Direction uint8

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// OutputMode of an output pin.
type OutputMode uint8

const (
	OutputPushPull OutputMode = iota
	OutputOpenDrain
)

// PullResistor selects the internal pull resistor of a pin.
type PullResistor uint8

const (
	PullNone PullResistor = iota
	PullUp
	PullDown
)

// Trigger selects which edges of a pin raise an event.
type Trigger uint8

const (
	TriggerNone Trigger = iota
	TriggerRisingEdge
	TriggerFallingEdge
	TriggerEitherEdge
)

// Event describes the edge condition that raised an event.
type Event uint32

const (
	EventRisingEdge  Event = 1 << 0
	EventFallingEdge Event = 1 << 1
	EventEitherEdge  Event = 1 << 2
)

// EventID identifies the physical pin an event was raised for.
// It encodes the port in the upper 16 bits and the pin number in the lower.
type EventID uint32

// NewEventID builds the event identifier of the given physical pin.
func NewEventID(p port.ID, pin uint8) EventID {
	return EventID(uint32(p)<<16 | uint32(pin))
}

// Port returns the port of the event.
func (id EventID) Port() port.ID {
	return port.ID(id >> 16)
}

// Pin returns the physical pin number of the event.
func (id EventID) Pin() uint8 {
	return uint8(id & 0xFFFF)
}

// SignalEvent is called from interrupt context when an event is raised on
// a pin. Implementations must be short and must not block.
type SignalEvent func(id EventID, event Event)

// Driver is the API that is supported by all pin drivers.
type Driver interface {
	// Setup prepares the pin for use as GPIO and, when cb is not nil,
	// registers cb for events raised on the pin.
	Setup(pin PinID, cb SignalEvent) error
	// SetDirection configures the pin as input or output.
	SetDirection(pin PinID, direction Direction) error
	// SetOutputMode configures the output driver of the pin.
	SetOutputMode(pin PinID, mode OutputMode) error
	// SetPullResistor configures the internal pull resistor of the pin.
	SetPullResistor(pin PinID, pull PullResistor) error
	// SetEventTrigger selects the edges that raise events on the pin.
	SetEventTrigger(pin PinID, trigger Trigger) error
	// SetOutput drives the pin high (true) or low (false).
	// Unavailable pins are silently ignored.
	SetOutput(pin PinID, value bool)
	// GetInput reads the level of the pin.
	GetInput(pin PinID) (bool, error)
}
