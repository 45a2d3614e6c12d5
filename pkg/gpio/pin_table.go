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
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/s32k144"
)

// Descriptor identifies a physical pin.
type Descriptor struct {
	Port port.ID
	Pin  uint8
}

// Available returns true if the pin number can be addressed by the
// port registers.
func (d Descriptor) Available() bool {
	return d.Port.Valid() && int(d.Pin) < s32k144.PinsPerPort
}

// String returns the board name of the pin (e.g. PTC12).
func (d Descriptor) String() string {
	return fmt.Sprintf("PT%c%d", 'A'+rune(d.Port), d.Pin)
}

// PinEntry binds a logical pin to a physical pin.
type PinEntry struct {
	ID   PinID
	Name string
	Descriptor
}

// PinTable maps logical pins to physical pins.
// It is immutable after construction.
type PinTable struct {
	entries map[PinID]PinEntry
	byName  map[string]PinID
}

// NewPinTable builds a table from the given entries.
// Entries with a pin number that is out of range are accepted; every
// operation on such a pin fails with PinUnavailableError.
func NewPinTable(entries ...PinEntry) (*PinTable, error) {
	t := &PinTable{
		entries: make(map[PinID]PinEntry, len(entries)),
		byName:  make(map[string]PinID, len(entries)),
	}
	used := make(map[Descriptor]PinID)
	for _, e := range entries {
		if e.Name == "" {
			e.Name = fmt.Sprintf("pin%d", e.ID)
		}
		if !e.Port.Valid() {
			return nil, maskAny(errors.Wrapf(InvalidParameterError, "pin %s has invalid port %d", e.Name, e.Port))
		}
		if _, found := t.entries[e.ID]; found {
			return nil, maskAny(errors.Wrapf(InvalidParameterError, "duplicate pin ID %d", e.ID))
		}
		if _, found := t.byName[e.Name]; found {
			return nil, maskAny(errors.Wrapf(InvalidParameterError, "duplicate pin name '%s'", e.Name))
		}
		if e.Available() {
			if other, found := used[e.Descriptor]; found {
				return nil, maskAny(errors.Wrapf(InvalidParameterError, "pin %s uses %s, already used by %s", e.Name, e.Descriptor, t.entries[other].Name))
			}
			used[e.Descriptor] = e.ID
		}
		t.entries[e.ID] = e
		t.byName[e.Name] = e.ID
	}
	return t, nil
}

// Lookup resolves a logical pin to its physical pin.
func (t *PinTable) Lookup(id PinID) (Descriptor, error) {
	e, found := t.entries[id]
	if !found {
		return Descriptor{}, maskAny(errors.Wrapf(PinUnavailableError, "pin %d is not in the pin table", id))
	}
	if !e.Available() {
		return Descriptor{}, maskAny(errors.Wrapf(PinUnavailableError, "pin %s maps to %s", e.Name, e.Descriptor))
	}
	return e.Descriptor, nil
}

// Entry returns the table entry of the given logical pin.
func (t *PinTable) Entry(id PinID) (PinEntry, bool) {
	e, found := t.entries[id]
	return e, found
}

// Name returns the name of the given logical pin.
func (t *PinTable) Name(id PinID) string {
	if e, found := t.entries[id]; found {
		return e.Name
	}
	return fmt.Sprintf("pin%d", id)
}

// ByName returns the logical pin with the given name.
func (t *PinTable) ByName(name string) (PinID, bool) {
	id, found := t.byName[name]
	return id, found
}

// IDs returns all logical pins in ascending order.
func (t *PinTable) IDs() []PinID {
	ids := lo.Keys(t.entries)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Unavailable returns the logical pins that cannot be addressed.
func (t *PinTable) Unavailable() []PinID {
	return lo.Filter(t.IDs(), func(id PinID, _ int) bool {
		return !t.entries[id].Available()
	})
}
