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
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DevMem is a Bus backed by a memory mapping of a physical address window,
// typically through /dev/mem.
type DevMem struct {
	base uint32 // First physical address of the window
	size uint32 // Size of the window in bytes
	mem  []byte // Mapping, starting at the page containing base
	skew uint32 // Offset of base within mem
}

// OpenDevMem maps the physical window [base, base+size) of the given
// memory device (usually /dev/mem).
func OpenDevMem(path string, base, size uint32) (*DevMem, error) {
	if size == 0 || base%4 != 0 {
		return nil, errors.Errorf("invalid window 0x%08x+0x%x", base, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "Open %s failed", path)
	}
	defer f.Close()

	pageSize := uint32(os.Getpagesize())
	pageBase := base &^ (pageSize - 1)
	skew := base - pageBase
	length := int((skew + size + pageSize - 1) &^ (pageSize - 1))
	mem, err := unix.Mmap(int(f.Fd()), int64(pageBase), length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "Mmap 0x%08x failed", pageBase)
	}
	return &DevMem{
		base: base,
		size: size,
		mem:  mem,
		skew: skew,
	}, nil
}

// Contains returns true if the given address lies within the window.
func (d *DevMem) Contains(addr uint32) bool {
	return addr >= d.base && addr-d.base < d.size
}

// word returns a pointer to the register at addr.
// An address outside the window is a programming error, just like
// an unmapped access on the chip itself.
func (d *DevMem) word(addr uint32) *uint32 {
	if !d.Contains(addr) || addr%4 != 0 {
		panic(fmt.Sprintf("register address 0x%08x outside window 0x%08x+0x%x", addr, d.base, d.size))
	}
	off := d.skew + addr - d.base
	return (*uint32)(unsafe.Pointer(&d.mem[off]))
}

// Load32 reads the register at the given address.
func (d *DevMem) Load32(addr uint32) uint32 {
	return atomic.LoadUint32(d.word(addr))
}

// Store32 writes the register at the given address.
func (d *DevMem) Store32(addr, value uint32) {
	atomic.StoreUint32(d.word(addr), value)
}

// Close unmaps the window.
func (d *DevMem) Close() error {
	if d.mem == nil {
		return nil
	}
	mem := d.mem
	d.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return errors.Wrap(err, "Munmap failed")
	}
	return nil
}
