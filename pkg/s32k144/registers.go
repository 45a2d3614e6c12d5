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

// Package s32k144 contains the register map of the S32K144 blocks used
// by the port and gpio drivers: PCC clock gating, PORT control, GPIO data
// and the NVIC.
package s32k144

const (
	// PortCount is the number of PORT/GPIO register blocks (A..E).
	PortCount = 5
	// PinsPerPort is the width of the PDDR/PDOR/PDIR/ISFR registers.
	PinsPerPort = 32
)

// PCC (peripheral clock control)
const (
	PCCBase = 0x40065000

	PCCIndexPortA = 73
	PCCIndexPortB = 74
	PCCIndexPortC = 75
	PCCIndexPortD = 76
	PCCIndexPortE = 77

	// PCCCGCMask is the clock gate control bit of a PCCn register.
	PCCCGCMask = 1 << 30
)

// PCCAddress returns the address of PCCn[index].
func PCCAddress(index uint32) uint32 {
	return PCCBase + index*4
}

// PORT (pin control and interrupts)
const (
	PortABase = 0x40049000
	PortBBase = 0x4004A000
	PortCBase = 0x4004B000
	PortDBase = 0x4004C000
	PortEBase = 0x4004D000

	// Size of the address range claimed by a PORT block.
	PortBlockSize = 0x1000

	PortGPCLR = 0x80
	PortGPCHR = 0x84
	PortGICLR = 0x88
	PortGICHR = 0x8C
	PortISFR  = 0xA0
)

// PCR fields
const (
	PCRPSMask    = 1 << 0
	PCRPEMask    = 1 << 1
	PCRPFEMask   = 1 << 4
	PCRDSEMask   = 1 << 6
	PCRMuxShift  = 8
	PCRMuxMask   = 0x7 << PCRMuxShift
	PCRLKMask    = 1 << 15
	PCRIRQCShift = 16
	PCRIRQCMask  = 0xF << PCRIRQCShift
	// PCRISFMask is write-1-to-clear. Reading a PCR with a pending flag
	// returns it set, so read-modify-write sequences must mask it out.
	PCRISFMask = 1 << 24
)

// PCRMux encodes a mux selection into the PCR MUX field.
func PCRMux(mux uint32) uint32 {
	return (mux << PCRMuxShift) & PCRMuxMask
}

// PCRIRQC encodes an interrupt configuration into the PCR IRQC field.
func PCRIRQC(irqc uint32) uint32 {
	return (irqc << PCRIRQCShift) & PCRIRQCMask
}

// PCRAddress returns the address of PCR[pin] of the PORT block at base.
func PCRAddress(base uint32, pin uint8) uint32 {
	return base + uint32(pin)*4
}

// GPIO (data registers)
const (
	PTABase = 0x400FF000
	PTBBase = 0x400FF040
	PTCBase = 0x400FF080
	PTDBase = 0x400FF0C0
	PTEBase = 0x400FF100

	// Size of the address range claimed by a GPIO block.
	GPIOBlockSize = 0x40

	GPIOPDOR = 0x00
	GPIOPSOR = 0x04
	GPIOPCOR = 0x08
	GPIOPTOR = 0x0C
	GPIOPDIR = 0x10
	GPIOPDDR = 0x14
	GPIOPIDR = 0x18
)

// IRQ numbers of the PORT interrupt lines.
const (
	PortAIRQ = 59
	PortBIRQ = 60
	PortCIRQ = 61
	PortDIRQ = 62
	PortEIRQ = 63
)

// NVIC
const (
	NVICBase = 0xE000E100
	NVICISER = 0x000
	NVICICER = 0x080
	NVICISPR = 0x100
	NVICICPR = 0x180
	NVICIPR  = 0x300

	// NVICBlockSize covers ISER through the last IPR byte.
	NVICBlockSize = 0x400

	// NVICPriorityBits is the number of implemented priority bits.
	// They occupy the upper bits of each IPR byte.
	NVICPriorityBits = 4
)

// Block describes the register blocks and NVIC routing of one port.
type Block struct {
	Name     string
	PortBase uint32
	GPIOBase uint32
	PCCIndex uint32
	IRQ      int
}

// Blocks lists the register blocks of ports A..E, indexed by port number.
var Blocks = [PortCount]Block{
	{Name: "PORTA", PortBase: PortABase, GPIOBase: PTABase, PCCIndex: PCCIndexPortA, IRQ: PortAIRQ},
	{Name: "PORTB", PortBase: PortBBase, GPIOBase: PTBBase, PCCIndex: PCCIndexPortB, IRQ: PortBIRQ},
	{Name: "PORTC", PortBase: PortCBase, GPIOBase: PTCBase, PCCIndex: PCCIndexPortC, IRQ: PortCIRQ},
	{Name: "PORTD", PortBase: PortDBase, GPIOBase: PTDBase, PCCIndex: PCCIndexPortD, IRQ: PortDIRQ},
	{Name: "PORTE", PortBase: PortEBase, GPIOBase: PTEBase, PCCIndex: PCCIndexPortE, IRQ: PortEIRQ},
}
