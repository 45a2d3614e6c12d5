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
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/PortDriver/pkg/port"
)

type fakeLine struct {
	level  bool
	writes []bool
}

func (l *fakeLine) Read() (bool, error) {
	return l.level, nil
}

func (l *fakeLine) Write(value bool) error {
	l.writes = append(l.writes, value)
	l.level = value
	return nil
}

func newTestSysfsDriver(t *testing.T) (*SysfsDriver, map[int]*fakeLine, *[]int) {
	t.Helper()
	table, err := NewPinTable(testEntries...)
	if err != nil {
		t.Fatalf("NewPinTable failed: %v", err)
	}
	lines := make(map[int]*fakeLine)
	get := func(n int) *fakeLine {
		if l, found := lines[n]; found {
			return l
		}
		l := &fakeLine{}
		lines[n] = l
		return l
	}
	var unexported []int
	d := NewSysfsDriver(table, zerolog.Nop())
	d.openInput = func(n int) (inputLine, error) { return get(n), nil }
	d.openOutput = func(n int, initial bool) (outputLine, error) {
		l := get(n)
		l.level = initial
		return l, nil
	}
	d.unexport = func(n int) error {
		unexported = append(unexported, n)
		return nil
	}
	return d, lines, &unexported
}

func TestSysfsOutput(t *testing.T) {
	d, lines, unexported := newTestSysfsDriver(t)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := d.SetDirection(testLED, DirectionOutput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	d.SetOutput(testLED, true)
	line := lines[3*32+15]
	if line == nil || len(line.writes) != 1 || !line.writes[0] {
		t.Fatalf("Expected one high write on line 111, got %v", line)
	}
	if _, err := d.GetInput(testLED); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter reading an output, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if len(*unexported) != 1 || (*unexported)[0] != 111 {
		t.Errorf("Expected line 111 to be unexported, got %v", *unexported)
	}
}

func TestSysfsUnavailablePin(t *testing.T) {
	d, lines, _ := newTestSysfsDriver(t)
	if err := d.Setup(testBroken, nil); !IsPinUnavailable(err) {
		t.Errorf("Expected PinUnavailable, got %v", err)
	}
	if err := d.SetDirection(testBroken, DirectionOutput); !IsPinUnavailable(err) {
		t.Errorf("Expected PinUnavailable, got %v", err)
	}
	d.SetOutput(testBroken, true)
	if len(lines) != 0 {
		t.Errorf("Expected no lines to be opened, got %d", len(lines))
	}
}

func TestSysfsPollSignalsMatchingEdges(t *testing.T) {
	d, lines, _ := newTestSysfsDriver(t)
	var events []recorded
	if err := d.Setup(testButton1, recorder(&events)); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := d.SetDirection(testButton1, DirectionInput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	if err := d.SetEventTrigger(testButton1, TriggerFallingEdge); err != nil {
		t.Fatalf("SetEventTrigger failed: %v", err)
	}
	line := lines[2*32+12]
	line.level = true
	d.poll() // primes the level
	line.level = false
	d.poll()
	line.level = true
	d.poll()

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].id != NewEventID(port.C, 12) || events[0].event != EventFallingEdge {
		t.Errorf("Unexpected event %v", events[0])
	}
	if err := d.SetEventTrigger(testButton1, Trigger(9)); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter, got %v", err)
	}
}

func TestSysfsPollSignalsInPinOrder(t *testing.T) {
	for run := 0; run < 50; run++ {
		d, lines, _ := newTestSysfsDriver(t)
		var events []recorded
		for _, id := range []PinID{testButton2, testButton1} {
			if err := d.Setup(id, recorder(&events)); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			if err := d.SetDirection(id, DirectionInput); err != nil {
				t.Fatalf("SetDirection failed: %v", err)
			}
			if err := d.SetEventTrigger(id, TriggerFallingEdge); err != nil {
				t.Fatalf("SetEventTrigger failed: %v", err)
			}
		}
		lines[2*32+12].level = true
		lines[2*32+13].level = true
		d.poll()
		lines[2*32+12].level = false
		lines[2*32+13].level = false
		d.poll()

		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].id != NewEventID(port.C, 12) || events[1].id != NewEventID(port.C, 13) {
			t.Fatalf("Run %d: expected PTC12 before PTC13, got %v", run, events)
		}
	}
}

func TestTransitionEvent(t *testing.T) {
	tests := []struct {
		Trigger  Trigger
		Level    bool
		Expected Event
		OK       bool
	}{
		{TriggerRisingEdge, true, EventRisingEdge, true},
		{TriggerRisingEdge, false, EventRisingEdge, false},
		{TriggerFallingEdge, false, EventFallingEdge, true},
		{TriggerEitherEdge, true, EventEitherEdge, true},
		{TriggerNone, true, 0, false},
	}
	for _, test := range tests {
		event, ok := transitionEvent(test.Trigger, test.Level)
		if ok != test.OK || (ok && event != test.Expected) {
			t.Errorf("Trigger %d level %v: expected %d/%v, got %d/%v", test.Trigger, test.Level, test.Expected, test.OK, event, ok)
		}
	}
}
