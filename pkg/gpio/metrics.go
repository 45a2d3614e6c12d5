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

package gpio

import (
	"github.com/binkynet/PortDriver/pkg/metrics"
)

const (
	subSystem = "gpio"
)

var (
	// Total number of events signaled per logical pin
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Total number of events signaled per logical pin",
		"pin")
	// Total number of failed driver calls per operation
	errorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"errors_total",
		"Total number of failed driver calls per operation",
		"op")
)
