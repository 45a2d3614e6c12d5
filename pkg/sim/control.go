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

package sim

import (
	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// InstallVector installs the handler of the given interrupt line.
func (c *Chip) InstallVector(irq nvic.IRQ, handler func()) {
	c.mu.Lock()
	c.vectors[irq] = handler
	c.mu.Unlock()
	c.deliver()
}

// InstallVectors installs all given handlers (see port.Ports.Vector).
func (c *Chip) InstallVectors(vector map[nvic.IRQ]func()) {
	c.mu.Lock()
	for irq, h := range vector {
		c.vectors[irq] = h
	}
	c.mu.Unlock()
	c.deliver()
}

// Drive applies an external level to the given pin. Edges are detected
// according to the pin's interrupt configuration. A resulting interrupt is
// delivered on the calling goroutine before Drive returns, unless another
// goroutine is already delivering; that goroutine then picks it up.
func (c *Chip) Drive(id port.ID, pin uint8, high bool) {
	c.mu.Lock()
	p := &c.ports[id]
	before := c.levels(id)
	mask := uint32(1) << pin
	p.driven |= mask
	if high {
		p.external |= mask
	} else {
		p.external &^= mask
	}
	c.detectEdges(id, before, c.levels(id))
	c.mu.Unlock()

	c.deliver()
}

// Float removes the external level from the given pin, leaving it to its
// pull resistor.
func (c *Chip) Float(id port.ID, pin uint8) {
	c.mu.Lock()
	p := &c.ports[id]
	before := c.levels(id)
	p.driven &^= 1 << pin
	c.detectEdges(id, before, c.levels(id))
	c.mu.Unlock()

	c.deliver()
}

// Press pulls an active-low button on the given pin to ground.
func (c *Chip) Press(id port.ID, pin uint8) {
	c.Drive(id, pin, false)
}

// Release lets go of an active-low button on the given pin.
func (c *Chip) Release(id port.ID, pin uint8) {
	c.Float(id, pin)
}

// Level returns the logic level of the given pin as seen in PDIR.
func (c *Chip) Level(id port.ID, pin uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels(id)&(1<<pin) != 0
}

// SetFlags raises the interrupt flags in mask, as if edges arrived on
// those pins. Delivery follows the same rules as Drive.
func (c *Chip) SetFlags(id port.ID, mask uint32) {
	c.mu.Lock()
	c.ports[id].isfr |= mask
	c.mu.Unlock()

	c.deliver()
}

// Flags returns the pending interrupt flags of the given port.
func (c *Chip) Flags(id port.ID) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ports[id].isfr
}

// PCR returns the pin control register of the given pin, including ISF.
func (c *Chip) PCR(id port.ID, pin uint8) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	value := c.ports[id].pcr[pin]
	if c.ports[id].isfr&(1<<pin) != 0 {
		value |= s32k144.PCRISFMask
	}
	return value
}

// ClockEnabled returns true if the clock gate of the given port is open.
func (c *Chip) ClockEnabled(id port.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clockEnabled(id)
}

// IRQEnabled returns true if the given interrupt line is armed.
func (c *Chip) IRQEnabled(irq nvic.IRQ) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.irqEnabled(irq)
}

// Writes returns a copy of the store journal.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.journal...)
}

// ResetJournal empties the store journal.
func (c *Chip) ResetJournal() {
	c.mu.Lock()
	c.journal = nil
	c.mu.Unlock()
}

// AfterNextLoad runs fn once, right after the next load of the register
// at addr has taken its value. It is used to make hardware events land
// between a read and the write that follows it.
func (c *Chip) AfterNextLoad(addr uint32, fn func()) {
	c.mu.Lock()
	c.loadHooks[addr] = append(c.loadHooks[addr], fn)
	c.mu.Unlock()
}
