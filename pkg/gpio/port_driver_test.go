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

	"github.com/binkynet/PortDriver/pkg/nvic"
	"github.com/binkynet/PortDriver/pkg/port"
	"github.com/binkynet/PortDriver/pkg/s32k144"
	"github.com/binkynet/PortDriver/pkg/sim"
)

const (
	testButton1 PinID = iota
	testButton2
	testLED
	testBroken
	testUnknown PinID = 99
)

var testEntries = []PinEntry{
	{ID: testButton1, Name: "button1", Descriptor: Descriptor{Port: port.C, Pin: 12}},
	{ID: testButton2, Name: "button2", Descriptor: Descriptor{Port: port.C, Pin: 13}},
	{ID: testLED, Name: "led", Descriptor: Descriptor{Port: port.D, Pin: 15}},
	{ID: testBroken, Name: "broken", Descriptor: Descriptor{Port: port.D, Pin: 40}},
}

type recorded struct {
	id    EventID
	event Event
}

func newTestDriver(t *testing.T) (*PortDriver, *sim.Chip) {
	t.Helper()
	log := zerolog.Nop()
	chip := sim.New(log)
	ports := port.NewPorts(chip, nvic.New(chip), log)
	chip.InstallVectors(ports.Vector())
	table, err := NewPinTable(testEntries...)
	if err != nil {
		t.Fatalf("NewPinTable failed: %v", err)
	}
	return NewPortDriver(table, ports, log), chip
}

func recorder(list *[]recorded) SignalEvent {
	return func(id EventID, event Event) {
		*list = append(*list, recorded{id: id, event: event})
	}
}

// setupButton configures the given pin the way the board does.
func setupButton(t *testing.T, d *PortDriver, pin PinID, cb SignalEvent) {
	t.Helper()
	if err := d.Setup(pin, cb); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := d.SetDirection(pin, DirectionInput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	if err := d.SetPullResistor(pin, PullUp); err != nil {
		t.Fatalf("SetPullResistor failed: %v", err)
	}
	if err := d.SetEventTrigger(pin, TriggerFallingEdge); err != nil {
		t.Fatalf("SetEventTrigger failed: %v", err)
	}
}

func pcrMux(pcr uint32) port.Mux {
	return port.Mux((pcr & s32k144.PCRMuxMask) >> s32k144.PCRMuxShift)
}

func TestSetupIsIdempotent(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	first := chip.PCR(port.D, 15)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if second := chip.PCR(port.D, 15); second != first {
		t.Errorf("Expected PCR 0x%08x after second Setup, got 0x%08x", first, second)
	}
	if !chip.ClockEnabled(port.D) {
		t.Error("Expected clock of PORTD to be enabled")
	}
	if mux := pcrMux(first); mux != port.MuxGPIO {
		t.Errorf("Expected mux %d, got %d", port.MuxGPIO, mux)
	}
}

func TestUnavailablePinsDoNotWrite(t *testing.T) {
	d, chip := newTestDriver(t)
	for _, pin := range []PinID{testBroken, testUnknown} {
		chip.ResetJournal()
		cb := func(EventID, Event) {}
		if err := d.Setup(pin, cb); !IsPinUnavailable(err) {
			t.Errorf("Setup(%d): expected PinUnavailable, got %v", pin, err)
		}
		if err := d.SetDirection(pin, DirectionOutput); !IsPinUnavailable(err) {
			t.Errorf("SetDirection(%d): expected PinUnavailable, got %v", pin, err)
		}
		if err := d.SetOutputMode(pin, OutputPushPull); !IsPinUnavailable(err) {
			t.Errorf("SetOutputMode(%d): expected PinUnavailable, got %v", pin, err)
		}
		if err := d.SetPullResistor(pin, PullUp); !IsPinUnavailable(err) {
			t.Errorf("SetPullResistor(%d): expected PinUnavailable, got %v", pin, err)
		}
		if err := d.SetEventTrigger(pin, TriggerRisingEdge); !IsPinUnavailable(err) {
			t.Errorf("SetEventTrigger(%d): expected PinUnavailable, got %v", pin, err)
		}
		d.SetOutput(pin, true)
		if _, err := d.GetInput(pin); !IsPinUnavailable(err) {
			t.Errorf("GetInput(%d): expected PinUnavailable, got %v", pin, err)
		}
		if writes := chip.Writes(); len(writes) != 0 {
			t.Errorf("Pin %d: expected no register writes, got %d", pin, len(writes))
		}
	}
}

func TestOutputLoopback(t *testing.T) {
	d, _ := newTestDriver(t)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := d.SetDirection(testLED, DirectionOutput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	for _, value := range []bool{true, false, true} {
		d.SetOutput(testLED, value)
		if got, err := d.GetInput(testLED); err != nil {
			t.Errorf("GetInput failed: %v", err)
		} else if got != value {
			t.Errorf("Expected input %v, got %v", value, got)
		}
	}
}

func TestSetOutputUsesSetAndClearRegisters(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	base := s32k144.Blocks[port.D].GPIOBase
	tests := []struct {
		Value bool
		Addr  uint32
	}{
		{true, base + s32k144.GPIOPSOR},
		{false, base + s32k144.GPIOPCOR},
	}
	for _, test := range tests {
		chip.ResetJournal()
		d.SetOutput(testLED, test.Value)
		writes := chip.Writes()
		if len(writes) != 1 {
			t.Fatalf("Expected 1 write, got %d", len(writes))
		}
		if writes[0].Addr != test.Addr || writes[0].Value != 1<<15 {
			t.Errorf("Expected write 0x%08x=0x%08x, got 0x%08x=0x%08x", test.Addr, uint32(1<<15), writes[0].Addr, writes[0].Value)
		}
	}
}

func TestDirectionPolarity(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.Setup(testLED, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	pddr := s32k144.Blocks[port.D].GPIOBase + s32k144.GPIOPDDR
	if err := d.SetDirection(testLED, DirectionOutput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	if chip.Load32(pddr)&(1<<15) == 0 {
		t.Error("Expected PDDR bit to be set for output")
	}
	if err := d.SetDirection(testLED, DirectionInput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	if chip.Load32(pddr)&(1<<15) != 0 {
		t.Error("Expected PDDR bit to be cleared for input")
	}
	chip.ResetJournal()
	if err := d.SetDirection(testLED, Direction(7)); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter, got %v", err)
	}
	if writes := chip.Writes(); len(writes) != 0 {
		t.Errorf("Expected no register writes, got %d", len(writes))
	}
}

func TestInvalidTriggerLeavesPCRUnchanged(t *testing.T) {
	d, chip := newTestDriver(t)
	setupButton(t, d, testButton1, nil)
	before := chip.PCR(port.C, 12)
	chip.ResetJournal()
	if err := d.SetEventTrigger(testButton1, Trigger(4)); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter, got %v", err)
	}
	if after := chip.PCR(port.C, 12); after != before {
		t.Errorf("Expected PCR 0x%08x, got 0x%08x", before, after)
	}
	if writes := chip.Writes(); len(writes) != 0 {
		t.Errorf("Expected no register writes, got %d", len(writes))
	}
}

func TestEventTriggerConfiguresIRQC(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.Setup(testButton1, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	tests := []struct {
		Trigger  Trigger
		Expected port.IRQConfig
	}{
		{TriggerRisingEdge, port.IRQRising},
		{TriggerFallingEdge, port.IRQFalling},
		{TriggerEitherEdge, port.IRQEither},
		{TriggerNone, port.IRQDisabled},
	}
	for _, test := range tests {
		if err := d.SetEventTrigger(testButton1, test.Trigger); err != nil {
			t.Fatalf("SetEventTrigger(%d) failed: %v", test.Trigger, err)
		}
		irqc := port.IRQConfig((chip.PCR(port.C, 12) & s32k144.PCRIRQCMask) >> s32k144.PCRIRQCShift)
		if irqc != test.Expected {
			t.Errorf("Trigger %d: expected IRQC %d, got %d", test.Trigger, test.Expected, irqc)
		}
		if !chip.IRQEnabled(s32k144.PortCIRQ) {
			t.Errorf("Trigger %d: expected PORTC interrupt to be armed", test.Trigger)
		}
	}
}

func TestPullResistor(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.Setup(testButton1, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	tests := []struct {
		Pull PullResistor
		PE   bool
		PS   bool
	}{
		{PullUp, true, true},
		{PullDown, true, false},
		{PullNone, false, false},
	}
	for _, test := range tests {
		if err := d.SetPullResistor(testButton1, test.Pull); err != nil {
			t.Fatalf("SetPullResistor(%d) failed: %v", test.Pull, err)
		}
		pcr := chip.PCR(port.C, 12)
		if pe := pcr&s32k144.PCRPEMask != 0; pe != test.PE {
			t.Errorf("Pull %d: expected PE %v, got %v", test.Pull, test.PE, pe)
		}
		if test.PE {
			if ps := pcr&s32k144.PCRPSMask != 0; ps != test.PS {
				t.Errorf("Pull %d: expected PS %v, got %v", test.Pull, test.PS, ps)
			}
		}
	}
	if err := d.SetPullResistor(testButton1, PullResistor(3)); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter, got %v", err)
	}
}

func TestOutputMode(t *testing.T) {
	d, _ := newTestDriver(t)
	if err := d.SetOutputMode(testLED, OutputPushPull); err != nil {
		t.Errorf("Expected push-pull to be accepted, got %v", err)
	}
	if err := d.SetOutputMode(testLED, OutputOpenDrain); !IsInvalidParameter(err) {
		t.Errorf("Expected InvalidParameter for open-drain, got %v", err)
	}
}

func TestTwoPinsOnOnePortEachGetTheirCallback(t *testing.T) {
	d, chip := newTestDriver(t)
	var a, b []recorded
	setupButton(t, d, testButton1, recorder(&a))
	setupButton(t, d, testButton2, recorder(&b))

	chip.SetFlags(port.C, 1<<12|1<<13)

	if len(a) != 1 || a[0].id.Port() != port.C || a[0].id.Pin() != 12 {
		t.Errorf("Expected one event for PTC12 on button1, got %v", a)
	}
	if len(b) != 1 || b[0].id.Port() != port.C || b[0].id.Pin() != 13 {
		t.Errorf("Expected one event for PTC13 on button2, got %v", b)
	}
	if len(a) == 1 && a[0].event != EventFallingEdge {
		t.Errorf("Expected falling edge event, got %d", a[0].event)
	}
	if flags := chip.Flags(port.C); flags != 0 {
		t.Errorf("Expected ISFR to be 0, got 0x%08x", flags)
	}
}

func TestLaterRegistrationDoesNotOverwrite(t *testing.T) {
	d, chip := newTestDriver(t)
	var a, b []recorded
	setupButton(t, d, testButton1, recorder(&a))
	setupButton(t, d, testButton2, recorder(&b))

	chip.SetFlags(port.C, 1<<12)
	if len(a) != 1 {
		t.Errorf("Expected button1 callback once, got %d", len(a))
	}
	if len(b) != 0 {
		t.Errorf("Expected no button2 callback, got %d", len(b))
	}
}

func TestSetupWithoutCallbackKeepsHandler(t *testing.T) {
	d, chip := newTestDriver(t)
	var a []recorded
	setupButton(t, d, testButton1, recorder(&a))
	if err := d.Setup(testButton1, nil); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	chip.SetFlags(port.C, 1<<12)
	if len(a) != 1 {
		t.Errorf("Expected callback once, got %d", len(a))
	}
}

func TestButtonPressRaisesFallingEdge(t *testing.T) {
	d, chip := newTestDriver(t)
	var a []recorded
	setupButton(t, d, testButton1, recorder(&a))

	if v, err := d.GetInput(testButton1); err != nil || !v {
		t.Errorf("Expected released button to read high, got %v (%v)", v, err)
	}
	chip.Press(port.C, 12)
	if len(a) != 1 {
		t.Fatalf("Expected one event after press, got %d", len(a))
	}
	if v, err := d.GetInput(testButton1); err != nil || v {
		t.Errorf("Expected pressed button to read low, got %v (%v)", v, err)
	}
	chip.Release(port.C, 12)
	if len(a) != 1 {
		t.Errorf("Expected no event on release, got %d events", len(a))
	}
}

func TestEventOf(t *testing.T) {
	tests := []struct {
		Config   port.IRQConfig
		Expected Event
	}{
		{port.IRQRising, EventRisingEdge},
		{port.IRQFalling, EventFallingEdge},
		{port.IRQEither, EventEitherEdge},
		{port.IRQLogicZero, EventEitherEdge},
	}
	for _, test := range tests {
		if got := eventOf(test.Config); got != test.Expected {
			t.Errorf("IRQC %d: expected %d, got %d", test.Config, test.Expected, got)
		}
	}
}

func TestEventID(t *testing.T) {
	id := NewEventID(port.E, 31)
	if uint32(id) != 4<<16|31 {
		t.Errorf("Unexpected encoding 0x%08x", uint32(id))
	}
	if id.Port() != port.E || id.Pin() != 31 {
		t.Errorf("Expected PORTE/31, got %s/%d", id.Port(), id.Pin())
	}
}
