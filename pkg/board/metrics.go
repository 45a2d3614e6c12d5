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
	"github.com/binkynet/PortDriver/pkg/metrics"
)

const (
	subSystem = "board"
)

var (
	// Total number of button presses per button
	buttonPressesTotal = metrics.MustRegisterCounterVec(subSystem,
		"button_presses_total",
		"Total number of button presses per button",
		"button")
	// State of LEDs (1=on)
	ledStateGauge = metrics.MustRegisterGaugeVec(subSystem,
		"led_state",
		"State of LEDs (1=on)",
		"led")
	// Number of pins configured successfully
	configuredPinsGauge = metrics.MustRegisterGauge(subSystem,
		"configured_pins",
		"Number of pins configured successfully")
	// Total number of activity blinks of the blue LED
	activityBlinksTotal = metrics.MustRegisterCounter(subSystem,
		"activity_blinks_total",
		"Total number of activity blinks of the blue LED")
)
