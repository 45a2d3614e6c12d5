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
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/regs"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// Ports is the registry of port controllers. It is created once at
// startup and handed to whatever performs pin setup.
type Ports struct {
	controllers [s32k144.PortCount]*Controller
	ic          nvic.Controller
}

// NewPorts creates a controller for every port on the given bus.
func NewPorts(bus regs.Bus, ic nvic.Controller, log zerolog.Logger) *Ports {
	log = log.With().Str("component", "port").Logger()
	p := &Ports{ic: ic}
	for _, id := range All {
		p.controllers[id] = newController(id, bus, ic, log)
	}
	return p
}

// Get returns the controller of the given port.
// Ports are fixed, so an unknown ID is a programming error.
func (p *Ports) Get(id ID) *Controller {
	if !id.Valid() {
		panic(fmt.Sprintf("invalid port %d", uint8(id)))
	}
	return p.controllers[id]
}

// Handler returns the interrupt entry point of the given port.
func (p *Ports) Handler(id ID) func() {
	c := p.Get(id)
	return func() { c.HandleInterrupt() }
}

// Vector returns the interrupt entry points of all ports, keyed by IRQ.
// Platform code installs these in its vector table.
func (p *Ports) Vector() map[nvic.IRQ]func() {
	result := make(map[nvic.IRQ]func(), len(p.controllers))
	for _, c := range p.controllers {
		result[c.IRQ()] = p.Handler(c.ID())
	}
	return result
}

// SetPriority sets the interrupt priority of the given port.
func (p *Ports) SetPriority(id ID, priority uint8) {
	p.ic.SetPriority(p.Get(id).IRQ(), priority)
}

// Poll runs the interrupt entry point of every armed port with pending
// flags, each interval, until the given context is canceled.
// It is used on hosts that cannot receive the port interrupts themselves.
func (p *Ports) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Ports) pollOnce() {
	for _, c := range p.controllers {
		if p.ic.IsEnabled(c.IRQ()) {
			c.HandleInterrupt()
		}
	}
}
