// Package sim provides in-memory implementations of the hal interfaces:
// a flash array that enforces the controller's erase/program discipline, a
// scripted transport for driving the state machine from tests, a net.Conn
// backed transport for loopback and live simulation, and a recording
// system. The simulate command and every state-machine test run on these.
package sim

import (
	"fmt"
	"os"

	"github.com/blupboot/blup/internal/protocol"
)

// Flash is an in-memory flash array. It checks the alignment and
// erase-before-program rules a real controller relies on, so tests of the
// update core double as tests of its flash discipline.
type Flash struct {
	mem     []byte
	written []bool

	// Erases and Programs count controller cycles, letting tests assert
	// that nothing touches flash after a halt.
	Erases   int
	Programs int

	corruptNext bool
	critical    interface{ InCritical() bool }
}

// NewFlash creates a flash array of the given size, fully erased.
func NewFlash(size uint32) *Flash {
	f := &Flash{
		mem:     make([]byte, size),
		written: make([]bool, size),
	}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

// RequireCritical makes Erase and Program fail unless sys reports an
// active critical section, mirroring the hardware constraint that no code
// may run during a flash cycle.
func (f *Flash) RequireCritical(sys interface{ InCritical() bool }) {
	f.critical = sys
}

func (f *Flash) checkCritical(op string) error {
	if f.critical != nil && !f.critical.InCritical() {
		return fmt.Errorf("%s outside critical section", op)
	}
	return nil
}

// Erase implements hal.Flash.
func (f *Flash) Erase(offset, length uint32) error {
	if err := f.checkCritical("erase"); err != nil {
		return err
	}
	if offset%protocol.SectorSize != 0 || length%protocol.SectorSize != 0 {
		return fmt.Errorf("erase not sector aligned: offset=0x%X length=0x%X", offset, length)
	}
	if int(offset)+int(length) > len(f.mem) {
		return fmt.Errorf("erase beyond flash: offset=0x%X length=0x%X", offset, length)
	}
	for i := offset; i < offset+length; i++ {
		f.mem[i] = 0xFF
		f.written[i] = false
	}
	f.Erases++
	return nil
}

// Program implements hal.Flash.
func (f *Flash) Program(offset uint32, data []byte) error {
	if err := f.checkCritical("program"); err != nil {
		return err
	}
	if offset%protocol.PageSize != 0 || len(data)%protocol.PageSize != 0 {
		return fmt.Errorf("program not page aligned: offset=0x%X length=%d", offset, len(data))
	}
	if int(offset)+len(data) > len(f.mem) {
		return fmt.Errorf("program beyond flash: offset=0x%X length=%d", offset, len(data))
	}
	for i, b := range data {
		if f.written[int(offset)+i] {
			return fmt.Errorf("program into unerased flash at 0x%X", offset+uint32(i))
		}
		f.mem[int(offset)+i] = b
		f.written[int(offset)+i] = true
	}
	if f.corruptNext {
		f.mem[offset] ^= 0x01
		f.corruptNext = false
	}
	f.Programs++
	return nil
}

// CorruptNextProgram makes the next program cycle store one wrong bit,
// modeling a failed write that only readback verification can catch.
func (f *Flash) CorruptNextProgram() {
	f.corruptNext = true
}

// Read implements hal.Flash.
func (f *Flash) Read(offset uint32, buf []byte) error {
	if int(offset)+len(buf) > len(f.mem) {
		return fmt.Errorf("read beyond flash: offset=0x%X length=%d", offset, len(buf))
	}
	copy(buf, f.mem[int(offset):int(offset)+len(buf)])
	return nil
}

// Bytes returns the flash content at [offset, offset+length).
func (f *Flash) Bytes(offset, length uint32) []byte {
	out := make([]byte, length)
	copy(out, f.mem[offset:offset+length])
	return out
}

// SaveFile persists the flash content so a simulated device keeps its
// application image across runs.
func (f *Flash) SaveFile(path string) error {
	return os.WriteFile(path, f.mem, 0o644)
}

// LoadFile restores flash content saved by SaveFile. A short file leaves
// the tail erased.
func (f *Flash) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > len(f.mem) {
		return fmt.Errorf("image %s (%d bytes) larger than flash (%d bytes)", path, len(data), len(f.mem))
	}
	copy(f.mem, data)
	for i := range data {
		f.written[i] = f.mem[i] != 0xFF
	}
	return nil
}
