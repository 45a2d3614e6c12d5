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

package board

import (
	"github.com/binkynet/PortDriver/pkg/gpio"
	"github.com/binkynet/PortDriver/pkg/port"
)

// Logical pins of the S32K144 evaluation board.
const (
	LEDBlue gpio.PinID = iota
	LEDRed
	LEDGreen
	Button1
	Button2
)

var (
	// LEDs contains all status LEDs.
	LEDs = []gpio.PinID{LEDBlue, LEDRed, LEDGreen}
	// Buttons contains all push buttons, each mapped to the LED it toggles.
	Buttons = map[gpio.PinID]gpio.PinID{
		Button1: LEDRed,
		Button2: LEDGreen,
	}
)

// DefaultPinEntries returns the pin assignment of the evaluation board.
func DefaultPinEntries() []gpio.PinEntry {
	return []gpio.PinEntry{
		{ID: LEDBlue, Name: "led-blue", Descriptor: gpio.Descriptor{Port: port.D, Pin: 0}},
		{ID: LEDRed, Name: "led-red", Descriptor: gpio.Descriptor{Port: port.D, Pin: 15}},
		{ID: LEDGreen, Name: "led-green", Descriptor: gpio.Descriptor{Port: port.D, Pin: 16}},
		{ID: Button1, Name: "button1", Descriptor: gpio.Descriptor{Port: port.C, Pin: 12}},
		{ID: Button2, Name: "button2", Descriptor: gpio.Descriptor{Port: port.C, Pin: 13}},
	}
}

// DefaultPinTable returns the pin table of the evaluation board.
func DefaultPinTable() (*gpio.PinTable, error) {
	return gpio.NewPinTable(DefaultPinEntries()...)
}
