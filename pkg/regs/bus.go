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

package regs

// Bus gives 32-bit access to memory-mapped peripheral registers by
// physical address. Implementations must perform each Load32/Store32 as a
// single access; read-modify-write sequences are built on top by callers.
type Bus interface {
	// Load32 reads the register at the given address.
	Load32(addr uint32) uint32
	// Store32 writes the register at the given address.
	Store32(addr, value uint32)
}

// SetBits sets the given bits of the register at addr (read-modify-write).
func SetBits(bus Bus, addr, mask uint32) {
	bus.Store32(addr, bus.Load32(addr)|mask)
}

// ClearBits clears the given bits of the register at addr (read-modify-write).
func ClearBits(bus Bus, addr, mask uint32) {
	bus.Store32(addr, bus.Load32(addr)&^mask)
}

// Modify clears clearMask and then sets setMask in the register at addr,
// using a single load and a single store.
func Modify(bus Bus, addr, clearMask, setMask uint32) {
	bus.Store32(addr, (bus.Load32(addr)&^clearMask)|setMask)
}
