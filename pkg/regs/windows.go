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

import (
	"fmt"

	aerr "github.com/ewoutp/go-aggregate-error"
)

// Window is a Bus that covers a limited physical address range.
type Window interface {
	Bus
	// Contains returns true if the given address lies within the window.
	Contains(addr uint32) bool
	// Close releases the window.
	Close() error
}

// Windows routes register accesses to the window that contains the address.
type Windows []Window

// Load32 reads the register at the given address.
func (w Windows) Load32(addr uint32) uint32 {
	return w.find(addr).Load32(addr)
}

// Store32 writes the register at the given address.
func (w Windows) Store32(addr, value uint32) {
	w.find(addr).Store32(addr, value)
}

// Close all windows.
func (w Windows) Close() error {
	var ae aerr.AggregateError
	for _, x := range w {
		ae.Add(x.Close())
	}
	return ae.AsError()
}

func (w Windows) find(addr uint32) Window {
	for _, x := range w {
		if x.Contains(addr) {
			return x
		}
	}
	panic(fmt.Sprintf("no window for register address 0x%08x", addr))
}
