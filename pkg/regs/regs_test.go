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
	"os"
	"path/filepath"
	"testing"
)

// memory is a sparse Window used by tests.
type memory struct {
	base, size uint32
	words      map[uint32]uint32
	closed     bool
}

func newMemory(base, size uint32) *memory {
	return &memory{base: base, size: size, words: make(map[uint32]uint32)}
}

func (m *memory) Load32(addr uint32) uint32  { return m.words[addr] }
func (m *memory) Store32(addr, value uint32) { m.words[addr] = value }
func (m *memory) Contains(addr uint32) bool  { return addr >= m.base && addr-m.base < m.size }
func (m *memory) Close() error               { m.closed = true; return nil }

func TestBitHelpers(t *testing.T) {
	m := newMemory(0, 0x100)
	m.Store32(0x10, 0xF0)
	SetBits(m, 0x10, 0x0F)
	if v := m.Load32(0x10); v != 0xFF {
		t.Errorf("SetBits: expected 0xFF, got 0x%x", v)
	}
	ClearBits(m, 0x10, 0x3C)
	if v := m.Load32(0x10); v != 0xC3 {
		t.Errorf("ClearBits: expected 0xC3, got 0x%x", v)
	}
	Modify(m, 0x10, 0xF0, 0x50)
	if v := m.Load32(0x10); v != 0x53 {
		t.Errorf("Modify: expected 0x53, got 0x%x", v)
	}
}

func TestWindowsRouting(t *testing.T) {
	a := newMemory(0x1000, 0x100)
	b := newMemory(0x2000, 0x100)
	w := Windows{a, b}
	w.Store32(0x1004, 1)
	w.Store32(0x2008, 2)
	if a.words[0x1004] != 1 || b.words[0x2008] != 2 {
		t.Errorf("Stores were not routed: %v %v", a.words, b.words)
	}
	if v := w.Load32(0x2008); v != 2 {
		t.Errorf("Expected 2, got %d", v)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Expected all windows to be closed")
	}
}

func TestWindowsPanicOutsideWindows(t *testing.T) {
	w := Windows{newMemory(0x1000, 0x100)}
	defer func() {
		if recover() == nil {
			t.Error("Expected panic")
		}
	}()
	w.Load32(0x3000)
}

func TestDevMemOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem")
	if err := os.WriteFile(path, make([]byte, os.Getpagesize()), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	d, err := OpenDevMem(path, 0x100, 0x40)
	if err != nil {
		t.Fatalf("OpenDevMem failed: %v", err)
	}
	if !d.Contains(0x13C) || d.Contains(0x140) || d.Contains(0xFC) {
		t.Error("Unexpected window bounds")
	}
	d.Store32(0x104, 0xCAFEBABE)
	if v := d.Load32(0x104); v != 0xCAFEBABE {
		t.Errorf("Expected 0xCAFEBABE, got 0x%08x", v)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if content[0x104] != 0xBE && content[0x107] != 0xBE {
		t.Errorf("Expected store to reach the file, got % x", content[0x104:0x108])
	}
}

func TestOpenDevMemInvalidWindow(t *testing.T) {
	if _, err := OpenDevMem("/nonexistent", 0x102, 4); err == nil {
		t.Error("Expected error for unaligned base")
	}
	if _, err := OpenDevMem(filepath.Join(t.TempDir(), "missing"), 0x100, 4); err == nil {
		t.Error("Expected error for missing file")
	}
}
