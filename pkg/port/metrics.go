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
	"github.com/binkynet/PortDriver/pkg/metrics"
)

const (
	subSystem = "port"
)

var (
	// Total number of interrupt entries per port
	interruptsTotal = metrics.MustRegisterCounterVec(subSystem,
		"interrupts_total",
		"Total number of interrupt entries per port",
		"port")
	// Total number of flagged pins serviced per port
	interruptPinsTotal = metrics.MustRegisterCounterVec(subSystem,
		"interrupt_pins_total",
		"Total number of flagged pins serviced per port",
		"port")
	// Total number of clock enable calls per port
	clockEnableTotal = metrics.MustRegisterCounterVec(subSystem,
		"clock_enable_total",
		"Total number of clock enable calls per port",
		"port")
)
