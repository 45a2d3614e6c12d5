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

package port

import (
	"math/bits"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/regs"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// Controller owns the PORT and GPIO register blocks of a single port.
// Pin numbers passed to its methods must be < 32; validating that is up
// to the caller.
type Controller struct {
	id       ID
	block    s32k144.Block
	bus      regs.Bus
	ic       nvic.Controller
	log      zerolog.Logger
	callback atomic.Pointer[Callback]

	interrupts    prometheus.Counter
	interruptPins prometheus.Counter
	clockEnables  prometheus.Counter
}

func newController(id ID, bus regs.Bus, ic nvic.Controller, log zerolog.Logger) *Controller {
	name := id.String()
	return &Controller{
		id:            id,
		block:         s32k144.Blocks[id],
		bus:           bus,
		ic:            ic,
		log:           log.With().Str("port", name).Logger(),
		interrupts:    interruptsTotal.WithLabelValues(name),
		interruptPins: interruptPinsTotal.WithLabelValues(name),
		clockEnables:  clockEnableTotal.WithLabelValues(name),
	}
}

// ID returns the identifier of the port.
func (c *Controller) ID() ID {
	return c.id
}

// IRQ returns the interrupt line of the port.
func (c *Controller) IRQ() nvic.IRQ {
	return nvic.IRQ(c.block.IRQ)
}

func (c *Controller) pcr(pin uint8) uint32 {
	return s32k144.PCRAddress(c.block.PortBase, pin)
}

func (c *Controller) isfr() uint32 {
	return c.block.PortBase + s32k144.PortISFR
}

func (c *Controller) gpio(offset uint32) uint32 {
	return c.block.GPIOBase + offset
}

// modifyPCR replaces the given fields of PCR[pin].
// ISF is always written as 0, so a pending flag survives the update.
func (c *Controller) modifyPCR(pin uint8, clearMask, setMask uint32) {
	c.Critical(func() {
		regs.Modify(c.bus, c.pcr(pin), clearMask|s32k144.PCRISFMask, setMask&^s32k144.PCRISFMask)
	})
}

// EnableClock turns on the peripheral clock gate of the port.
func (c *Controller) EnableClock() {
	addr := s32k144.PCCAddress(c.block.PCCIndex)
	regs.SetBits(c.bus, addr, s32k144.PCCCGCMask)
	c.clockEnables.Inc()
	c.log.Debug().Msg("clock enabled")
}

// PinMux selects the function of the given pin.
func (c *Controller) PinMux(pin uint8, mux Mux) {
	c.modifyPCR(pin, s32k144.PCRMuxMask, s32k144.PCRMux(uint32(mux)))
	c.log.Debug().Uint8("pin", pin).Uint8("mux", uint8(mux)).Msg("pin mux")
}

// PullConfig enables or disables the internal pull resistor of the given
// pin and selects its polarity.
func (c *Controller) PullConfig(pin uint8, enable, pullUp bool) {
	switch {
	case !enable:
		c.modifyPCR(pin, s32k144.PCRPEMask, 0)
	case pullUp:
		c.modifyPCR(pin, 0, s32k144.PCRPEMask|s32k144.PCRPSMask)
	default:
		c.modifyPCR(pin, s32k144.PCRPSMask, s32k144.PCRPEMask)
	}
	c.log.Debug().Uint8("pin", pin).Bool("enable", enable).Bool("pull_up", pullUp).Msg("pull config")
}

// PinInterruptConfig sets the interrupt configuration of the given pin and
// arms the interrupt line of the port at the interrupt controller.
// The line is armed even for IRQDisabled, since other pins of the port
// may still use it.
func (c *Controller) PinInterruptConfig(pin uint8, mode IRQConfig) {
	c.modifyPCR(pin, s32k144.PCRIRQCMask, s32k144.PCRIRQC(uint32(mode)))
	c.ic.EnableIRQ(c.IRQ())
	c.log.Debug().Uint8("pin", pin).Uint8("irqc", uint8(mode)).Msg("pin interrupt config")
}

// InterruptConfig returns the current interrupt configuration of the given pin.
func (c *Controller) InterruptConfig(pin uint8) IRQConfig {
	return IRQConfig((c.bus.Load32(c.pcr(pin)) & s32k144.PCRIRQCMask) >> s32k144.PCRIRQCShift)
}

// ClearInterruptFlag clears the pending interrupt flag of exactly one pin.
func (c *Controller) ClearInterruptFlag(pin uint8) {
	c.bus.Store32(c.isfr(), 1<<pin)
}

// RegisterCallback stores the callback invoked for flagged pins of this
// port, replacing any earlier registration. The replacement is a single
// pointer swap, so it is safe while the interrupt line is armed.
func (c *Controller) RegisterCallback(cb Callback) {
	if cb == nil {
		c.callback.Store(nil)
		return
	}
	c.callback.Store(&cb)
}

// HandleInterrupt is the interrupt entry point of the port.
// It snapshots ISFR, writes the snapshot back to clear exactly those flags
// and invokes the registered callback once per flagged pin, in ascending
// pin order. It returns the snapshot.
func (c *Controller) HandleInterrupt() uint32 {
	flags := c.bus.Load32(c.isfr())
	if flags == 0 {
		return 0
	}
	c.bus.Store32(c.isfr(), flags)
	c.interrupts.Inc()
	c.interruptPins.Add(float64(bits.OnesCount32(flags)))

	cbp := c.callback.Load()
	if cbp == nil {
		return flags
	}
	cb := *cbp
	for pending := flags; pending != 0; pending &= pending - 1 {
		cb(uint8(bits.TrailingZeros32(pending)))
	}
	return flags
}

// Critical runs fn with the interrupt line of the port masked.
// The line is re-armed afterwards only if it was armed before.
func (c *Controller) Critical(fn func()) {
	irq := c.IRQ()
	if !c.ic.IsEnabled(irq) {
		fn()
		return
	}
	c.ic.DisableIRQ(irq)
	defer c.ic.EnableIRQ(irq)
	fn()
}

// SetDirection sets (output) or clears (input) the PDDR bit of the given pin.
func (c *Controller) SetDirection(pin uint8, output bool) {
	mask := uint32(1) << pin
	c.Critical(func() {
		if output {
			regs.SetBits(c.bus, c.gpio(s32k144.GPIOPDDR), mask)
		} else {
			regs.ClearBits(c.bus, c.gpio(s32k144.GPIOPDDR), mask)
		}
	})
}

// IsOutput returns true if the PDDR bit of the given pin is set.
func (c *Controller) IsOutput(pin uint8) bool {
	return c.bus.Load32(c.gpio(s32k144.GPIOPDDR))&(1<<pin) != 0
}

// SetPins drives the pins in mask high through PSOR.
func (c *Controller) SetPins(mask uint32) {
	c.bus.Store32(c.gpio(s32k144.GPIOPSOR), mask)
}

// ClearPins drives the pins in mask low through PCOR.
func (c *Controller) ClearPins(mask uint32) {
	c.bus.Store32(c.gpio(s32k144.GPIOPCOR), mask)
}

// TogglePins inverts the output of the pins in mask through PTOR.
func (c *Controller) TogglePins(mask uint32) {
	c.bus.Store32(c.gpio(s32k144.GPIOPTOR), mask)
}

// ReadPins returns the input data register (PDIR).
func (c *Controller) ReadPins() uint32 {
	return c.bus.Load32(c.gpio(s32k144.GPIOPDIR))
}

// OutputPins returns the output data register (PDOR).
func (c *Controller) OutputPins() uint32 {
	return c.bus.Load32(c.gpio(s32k144.GPIOPDOR))
}
