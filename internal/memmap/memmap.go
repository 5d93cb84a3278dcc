// Package memmap describes the fixed memory layout of the target device:
// the XIP flash window, the SRAM range, and the application slot the
// bootloader programs. Every address check in the update path goes through
// a Region from here instead of scattered literals.
package memmap

import (
	"fmt"

	"github.com/blupboot/blup/internal/protocol"
)

// Region is a half-open address range [Base, Base+Length).
type Region struct {
	Base   uint32
	Length uint32
}

// End returns the first address past the region, truncated to 32 bits
// for a region ending exactly at the top of the address space.
func (r Region) End() uint32 {
	return r.Base + r.Length
}

// Contains reports whether addr falls inside the region. The offset form
// stays correct for regions ending at the top of the address space, where
// End() wraps to zero.
func (r Region) Contains(addr uint32) bool {
	return addr >= r.Base && addr-r.Base < r.Length
}

// Layout collects the three regions the bootloader cares about.
type Layout struct {
	// Flash is the whole memory-mapped flash window.
	Flash Region
	// App is the application slot inside Flash; everything after the
	// bootloader's own resident image.
	App Region
	// RAM is the SRAM range a valid initial stack pointer must land in.
	RAM Region
}

// Default is the layout of the reference device: a 16 MiB XIP window at
// 0x10000000 with a 16 KiB bootloader, and 264 KiB of SRAM at 0x20000000.
func Default() Layout {
	return Layout{
		Flash: Region{Base: 0x10000000, Length: 0x01000000},
		App:   Region{Base: 0x10004000, Length: 0x01000000 - 0x4000},
		RAM:   Region{Base: 0x20000000, Length: 264 * 1024},
	}
}

// AppOffset returns the application slot's offset from the start of flash.
// Flash controller primitives address by offset, not by mapped address.
func (l Layout) AppOffset() uint32 {
	return l.App.Base - l.Flash.Base
}

// ValidStackPointer reports whether sp is a plausible initial stack
// pointer: anywhere in RAM, including the one-past-the-end address. A
// full-descending stack starting at the very top of RAM initializes its
// pointer to exactly RAM end, which is what standard linker scripts emit.
func (l Layout) ValidStackPointer(sp uint32) bool {
	return sp >= l.RAM.Base && sp-l.RAM.Base <= l.RAM.Length
}

// FallbackReset is the reset address substituted when an image's reset
// vector lies outside the flash window: just past the vector table at the
// application base.
func (l Layout) FallbackReset() uint32 {
	return l.App.Base + 0x100
}

// FitsApp reports whether an image of the given size can be flashed into
// the application slot, erase rounding included.
func (l Layout) FitsApp(size uint32) bool {
	// The size bound also keeps EraseSize from wrapping at the top of
	// the 32-bit range.
	return size > 0 && size <= l.App.Length && protocol.EraseSize(size) <= l.App.Length
}

// end64 is the exclusive region end without 32-bit truncation, so a
// region running up to the top of the address space compares correctly.
func (r Region) end64() uint64 {
	return uint64(r.Base) + uint64(r.Length)
}

// Validate checks the layout invariants once at startup: non-empty
// regions that fit the 32-bit address space, the app slot inside flash
// and sector aligned, and RAM disjoint from flash.
func (l Layout) Validate() error {
	for _, r := range []struct {
		name string
		reg  Region
	}{
		{"flash", l.Flash},
		{"app", l.App},
		{"ram", l.RAM},
	} {
		if r.reg.Length == 0 {
			return fmt.Errorf("%s region is empty", r.name)
		}
		// Ending exactly at 2^32 is fine; running past it is not.
		if r.reg.end64() > 1<<32 {
			return fmt.Errorf("%s region wraps the address space", r.name)
		}
	}
	if l.App.Base < l.Flash.Base || l.App.end64() > l.Flash.end64() {
		return fmt.Errorf("app region 0x%08X+0x%X outside flash 0x%08X+0x%X",
			l.App.Base, l.App.Length, l.Flash.Base, l.Flash.Length)
	}
	if l.AppOffset()%protocol.SectorSize != 0 {
		return fmt.Errorf("app offset 0x%X is not sector aligned", l.AppOffset())
	}
	if uint64(l.RAM.Base) < l.Flash.end64() && uint64(l.Flash.Base) < l.RAM.end64() {
		return fmt.Errorf("ram region overlaps flash")
	}
	return nil
}
