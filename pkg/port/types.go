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

// Package port implements the PORT controller of the S32K144: clock gating,
// pin multiplexing, pull resistors, interrupt configuration and the
// per-port interrupt entry points.
package port

import (
	"fmt"

	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// ID identifies a physical port.
type ID uint8

const (
	A ID = iota
	B
	C
	D
	E
)

// All contains all ports in ascending order.
var All = []ID{A, B, C, D, E}

// Valid returns true if the ID identifies an existing port.
func (id ID) Valid() bool {
	return int(id) < s32k144.PortCount
}

// String returns the register block name of the port (e.g. PORTC).
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("PORT?%d", uint8(id))
	}
	return s32k144.Blocks[id].Name
}

// Mux selects the function driving a pin (PCR MUX field).
type Mux uint8

const (
	MuxDisabled Mux = 0 // Pin disabled (analog)
	MuxGPIO     Mux = 1
	MuxAlt2     Mux = 2
	MuxAlt3     Mux = 3
	MuxAlt4     Mux = 4
	MuxAlt5     Mux = 5
	MuxAlt6     Mux = 6
	MuxAlt7     Mux = 7
)

// IRQConfig is the interrupt configuration of a pin (PCR IRQC field).
type IRQConfig uint8

const (
	IRQDisabled   IRQConfig = 0
	IRQDMARising  IRQConfig = 1
	IRQDMAFalling IRQConfig = 2
	IRQDMAEither  IRQConfig = 3
	IRQLogicZero  IRQConfig = 8
	IRQRising     IRQConfig = 9
	IRQFalling    IRQConfig = 10
	IRQEither     IRQConfig = 11
	IRQLogicOne   IRQConfig = 12
)

// Valid returns true if the configuration is one the hardware defines.
func (c IRQConfig) Valid() bool {
	switch c {
	case IRQDisabled, IRQDMARising, IRQDMAFalling, IRQDMAEither,
		IRQLogicZero, IRQRising, IRQFalling, IRQEither, IRQLogicOne:
		return true
	default:
		return false
	}
}

// Callback is invoked from interrupt context once for every flagged
// physical pin of the port it is registered on.
type Callback func(pin uint8)
