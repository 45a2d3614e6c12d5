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

// Package sim contains a behavioural model of the S32K144 PCC, PORT, GPIO
// and NVIC register blocks. It implements regs.Bus, so the port and gpio
// drivers run against it unchanged.
package sim

import (
	"math/bits"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/regs"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

const (
	// Upper bound of interrupt entries delivered in one go, to break
	// out of handlers that never clear their flags.
	maxDeliveries = 256
)

// Write is a single register store recorded in the journal.
type Write struct {
	Addr  uint32
	Value uint32
}

type portState struct {
	pcr      [s32k144.PinsPerPort]uint32 // PCR without ISF
	isfr     uint32
	pdor     uint32
	pddr     uint32
	driven   uint32 // Pins with an external level applied
	external uint32 // External level of driven pins
}

// Chip is a simulated S32K144.
type Chip struct {
	log        zerolog.Logger
	mu         sync.Mutex
	pcc        map[uint32]uint32
	ports      [s32k144.PortCount]portState
	iser       [8]uint32
	ipr        map[uint32]uint32
	other      map[uint32]uint32
	journal    []Write
	loadHooks  map[uint32][]func()
	vectors    map[nvic.IRQ]func()
	delivering int32
}

var _ regs.Bus = &Chip{}

// New creates a simulated chip with all clocks gated, all pins disabled
// and all interrupt lines disarmed.
func New(log zerolog.Logger) *Chip {
	return &Chip{
		log:       log.With().Str("component", "sim").Logger(),
		pcc:       make(map[uint32]uint32),
		ipr:       make(map[uint32]uint32),
		other:     make(map[uint32]uint32),
		loadHooks: make(map[uint32][]func()),
		vectors:   make(map[nvic.IRQ]func()),
	}
}

type region uint8

const (
	regionOther region = iota
	regionPCC
	regionPort
	regionGPIO
	regionNVIC
)

// decode maps an address to the block that contains it.
func decode(addr uint32) (region, port.ID, uint32) {
	if addr >= s32k144.PCCBase && addr < s32k144.PCCBase+0x200 {
		return regionPCC, 0, addr - s32k144.PCCBase
	}
	if addr >= s32k144.NVICBase && addr < s32k144.NVICBase+s32k144.NVICBlockSize {
		return regionNVIC, 0, addr - s32k144.NVICBase
	}
	for i, b := range s32k144.Blocks {
		if addr >= b.PortBase && addr < b.PortBase+s32k144.PortBlockSize {
			return regionPort, port.ID(i), addr - b.PortBase
		}
		if addr >= b.GPIOBase && addr < b.GPIOBase+s32k144.GPIOBlockSize {
			return regionGPIO, port.ID(i), addr - b.GPIOBase
		}
	}
	return regionOther, 0, addr
}

// Load32 reads the register at the given address.
func (c *Chip) Load32(addr uint32) uint32 {
	c.mu.Lock()
	value := c.load(addr)
	hooks := c.loadHooks[addr]
	delete(c.loadHooks, addr)
	c.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	return value
}

func (c *Chip) load(addr uint32) uint32 {
	reg, id, off := decode(addr)
	switch reg {
	case regionPCC:
		return c.pcc[off/4]
	case regionPort:
		if !c.clockEnabled(id) {
			return 0
		}
		p := &c.ports[id]
		switch {
		case off < s32k144.PortGPCLR:
			pin := off / 4
			value := p.pcr[pin]
			if p.isfr&(1<<pin) != 0 {
				value |= s32k144.PCRISFMask
			}
			return value
		case off == s32k144.PortISFR:
			return p.isfr
		}
	case regionGPIO:
		p := &c.ports[id]
		switch off {
		case s32k144.GPIOPDOR:
			return p.pdor
		case s32k144.GPIOPDDR:
			return p.pddr
		case s32k144.GPIOPDIR:
			return c.levels(id)
		case s32k144.GPIOPSOR, s32k144.GPIOPCOR, s32k144.GPIOPTOR:
			return 0
		}
	case regionNVIC:
		switch {
		case off < s32k144.NVICICER:
			return c.iser[off/4]
		case off < s32k144.NVICISPR:
			return c.iser[(off-s32k144.NVICICER)/4]
		case off >= s32k144.NVICIPR:
			return c.ipr[off-s32k144.NVICIPR]
		}
	}
	return c.other[addr]
}

// Store32 writes the register at the given address.
func (c *Chip) Store32(addr, value uint32) {
	c.mu.Lock()
	c.journal = append(c.journal, Write{Addr: addr, Value: value})
	c.store(addr, value)
	c.mu.Unlock()

	c.deliver()
}

func (c *Chip) store(addr, value uint32) {
	reg, id, off := decode(addr)
	switch reg {
	case regionPCC:
		c.pcc[off/4] = value
		return
	case regionPort:
		if !c.clockEnabled(id) {
			c.log.Warn().Str("port", id.String()).Uint32("offset", off).Msg("write to PORT block with clock gated")
			return
		}
		p := &c.ports[id]
		switch {
		case off < s32k144.PortGPCLR:
			pin := off / 4
			before := c.levels(id)
			if value&s32k144.PCRISFMask != 0 {
				p.isfr &^= 1 << pin
			}
			p.pcr[pin] = value &^ s32k144.PCRISFMask
			c.detectEdges(id, before, c.levels(id))
			return
		case off == s32k144.PortISFR:
			p.isfr &^= value
			c.assertLevels(id)
			return
		}
	case regionGPIO:
		p := &c.ports[id]
		before := c.levels(id)
		switch off {
		case s32k144.GPIOPDOR:
			p.pdor = value
		case s32k144.GPIOPSOR:
			p.pdor |= value
		case s32k144.GPIOPCOR:
			p.pdor &^= value
		case s32k144.GPIOPTOR:
			p.pdor ^= value
		case s32k144.GPIOPDDR:
			p.pddr = value
		case s32k144.GPIOPDIR:
			// Read only
			return
		default:
			c.other[addr] = value
			return
		}
		c.detectEdges(id, before, c.levels(id))
		return
	case regionNVIC:
		switch {
		case off < s32k144.NVICICER:
			c.iser[off/4] |= value
			return
		case off < s32k144.NVICISPR:
			c.iser[(off-s32k144.NVICICER)/4] &^= value
			return
		case off >= s32k144.NVICIPR:
			c.ipr[off-s32k144.NVICIPR] = value
			return
		}
	}
	c.other[addr] = value
}

func (c *Chip) clockEnabled(id port.ID) bool {
	return c.pcc[s32k144.Blocks[id].PCCIndex]&s32k144.PCCCGCMask != 0
}

// levels returns the logic level of all pins of the port (PDIR).
// Output pins read back their own output (loopback). Input pins read the
// external level, or the level of their pull resistor when nothing drives them.
func (c *Chip) levels(id port.ID) uint32 {
	p := &c.ports[id]
	var pulled uint32
	for pin, pcr := range p.pcr {
		if pcr&s32k144.PCRPEMask != 0 && pcr&s32k144.PCRPSMask != 0 {
			pulled |= 1 << uint(pin)
		}
	}
	inputs := (p.external & p.driven) | (pulled &^ p.driven)
	return (p.pdor & p.pddr) | (inputs &^ p.pddr)
}

// detectEdges raises interrupt flags for the pins whose level changed
// according to their IRQC configuration, then re-asserts level flags.
func (c *Chip) detectEdges(id port.ID, before, after uint32) {
	if !c.clockEnabled(id) {
		return
	}
	p := &c.ports[id]
	for changed := before ^ after; changed != 0; changed &= changed - 1 {
		pin := bits.TrailingZeros32(changed)
		mask := uint32(1) << uint(pin)
		rising := after&mask != 0
		var flag bool
		switch c.irqc(id, pin) {
		case port.IRQRising, port.IRQDMARising:
			flag = rising
		case port.IRQFalling, port.IRQDMAFalling:
			flag = !rising
		case port.IRQEither, port.IRQDMAEither:
			flag = true
		}
		if flag {
			p.isfr |= mask
		}
	}
	c.assertLevels(id)
}

// assertLevels raises the flags of level-sensitive pins whose level
// currently matches. While the level holds, a cleared flag comes back.
func (c *Chip) assertLevels(id port.ID) {
	if !c.clockEnabled(id) {
		return
	}
	p := &c.ports[id]
	levels := c.levels(id)
	for pin := range p.pcr {
		mask := uint32(1) << uint(pin)
		switch c.irqc(id, pin) {
		case port.IRQLogicZero:
			if levels&mask == 0 {
				p.isfr |= mask
			}
		case port.IRQLogicOne:
			if levels&mask != 0 {
				p.isfr |= mask
			}
		}
	}
}

func (c *Chip) irqc(id port.ID, pin int) port.IRQConfig {
	return port.IRQConfig((c.ports[id].pcr[pin] & s32k144.PCRIRQCMask) >> s32k144.PCRIRQCShift)
}

// irqEnabled returns true if the given line is armed. Requires c.mu.
func (c *Chip) irqEnabled(irq nvic.IRQ) bool {
	return c.iser[uint32(irq)>>5]&(1<<(uint32(irq)&0x1F)) != 0
}

// priority returns the priority of the given line. Requires c.mu.
func (c *Chip) priority(irq nvic.IRQ) uint8 {
	word := c.ipr[uint32(irq)&^3]
	return uint8(word >> ((uint32(irq) & 3) * 8))
}

// nextPending returns the handler of the most urgent armed port interrupt
// with pending flags, or nil if there is none.
func (c *Chip) nextPending() func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var candidates []nvic.IRQ
	for i, b := range s32k144.Blocks {
		irq := nvic.IRQ(b.IRQ)
		if c.ports[i].isfr == 0 || !c.irqEnabled(irq) {
			continue
		}
		if _, found := c.vectors[irq]; !found {
			continue
		}
		candidates = append(candidates, irq)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := c.priority(candidates[i]), c.priority(candidates[j])
		if pi != pj {
			return pi < pj
		}
		return candidates[i] < candidates[j]
	})
	return c.vectors[candidates[0]]
}

// deliver runs the handlers of pending interrupts.
// Handlers run on the calling goroutine, one at a time. A store made from
// within a handler does not nest a new delivery; the pending interrupt is
// picked up once the running handler returns.
func (c *Chip) deliver() {
	for {
		if !atomic.CompareAndSwapInt32(&c.delivering, 0, 1) {
			return
		}
		count := 0
		for ; count < maxDeliveries; count++ {
			h := c.nextPending()
			if h == nil {
				break
			}
			h()
		}
		atomic.StoreInt32(&c.delivering, 0)
		if count == maxDeliveries {
			c.log.Error().Int("deliveries", count).Msg("interrupt storm; flags are not being cleared")
			return
		}
		if c.nextPending() == nil {
			return
		}
	}
}
