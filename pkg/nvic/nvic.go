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

// Package nvic drives the Cortex-M nested vectored interrupt controller
// through its ISER/ICER/IPR registers.
package nvic

import (
	"github.com/binkynet/PortDriver/pkg/regs"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// IRQ is an interrupt number. Negative numbers identify core exceptions,
// which are not controlled through the NVIC.
type IRQ int

// Controller is the API of an interrupt controller, addressed by IRQ.
type Controller interface {
	// EnableIRQ arms the given interrupt line.
	EnableIRQ(irq IRQ)
	// DisableIRQ disarms the given interrupt line.
	DisableIRQ(irq IRQ)
	// SetPriority sets the priority of the given interrupt line.
	// Lower values are more urgent.
	SetPriority(irq IRQ, priority uint8)
	// IsEnabled returns true if the given interrupt line is armed.
	IsEnabled(irq IRQ) bool
}

// NVIC is a register backed Controller.
type NVIC struct {
	bus  regs.Bus
	base uint32
}

var _ Controller = &NVIC{}

// New creates an NVIC at the default S32K144 base address.
func New(bus regs.Bus) *NVIC {
	return &NVIC{
		bus:  bus,
		base: s32k144.NVICBase,
	}
}

func (n *NVIC) word(offset uint32, irq IRQ) (uint32, uint32) {
	index := uint32(irq) >> 5
	bit := uint32(1) << (uint32(irq) & 0x1F)
	return n.base + offset + index*4, bit
}

// EnableIRQ arms the given interrupt line.
// ISER is write-1-to-set, so no read-modify-write is needed.
func (n *NVIC) EnableIRQ(irq IRQ) {
	if irq < 0 {
		return
	}
	addr, bit := n.word(s32k144.NVICISER, irq)
	n.bus.Store32(addr, bit)
}

// DisableIRQ disarms the given interrupt line.
func (n *NVIC) DisableIRQ(irq IRQ) {
	if irq < 0 {
		return
	}
	addr, bit := n.word(s32k144.NVICICER, irq)
	n.bus.Store32(addr, bit)
}

// IsEnabled returns true if the given interrupt line is armed.
func (n *NVIC) IsEnabled(irq IRQ) bool {
	if irq < 0 {
		return false
	}
	addr, bit := n.word(s32k144.NVICISER, irq)
	return n.bus.Load32(addr)&bit != 0
}

// MaxPriority is the least urgent priority that can be configured.
const MaxPriority = 1<<s32k144.NVICPriorityBits - 1

// SetPriority sets the priority of the given interrupt line.
// Only the upper NVICPriorityBits of the byte are implemented; priorities
// above MaxPriority are saturated to MaxPriority.
func (n *NVIC) SetPriority(irq IRQ, priority uint8) {
	if irq < 0 {
		return
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	addr := n.base + s32k144.NVICIPR + (uint32(irq) &^ 3)
	shift := (uint32(irq) & 3) * 8
	value := uint32(priority<<(8-s32k144.NVICPriorityBits)) & 0xFF
	regs.Modify(n.bus, addr, 0xFF<<shift, value<<shift)
}

// Priority returns the priority of the given interrupt line.
func (n *NVIC) Priority(irq IRQ) uint8 {
	if irq < 0 {
		return 0
	}
	addr := n.base + s32k144.NVICIPR + (uint32(irq) &^ 3)
	shift := (uint32(irq) & 3) * 8
	return uint8(n.bus.Load32(addr)>>shift) >> (8 - s32k144.NVICPriorityBits)
}
