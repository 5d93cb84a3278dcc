package boot

import (
	"encoding/binary"
	"fmt"

	"github.com/blupboot/blup/internal/protocol"
)

// launch is the guarded transfer of control to the application image. It
// reads the vector table fresh from flash, validates the stack pointer and
// reset vector against the memory layout, and only then invokes the
// never-returns branch primitive. All validation happens strictly before
// System.Branch; nothing may be deferred past it.
func (b *Bootloader) launch() (Outcome, error) {
	b.state = StateJump

	var vt [8]byte
	if err := b.flash.read(b.layout.AppOffset(), vt[:]); err != nil {
		return b.halt(fmt.Errorf("reading vector table: %w", err))
	}
	sp := binary.LittleEndian.Uint32(vt[0:4])
	reset := binary.LittleEndian.Uint32(vt[4:8])

	// An image built without a strict reset address gets the fixed
	// fallback entry. Leniency, not proof: the fallback is re-checked
	// below like any other address.
	if !b.layout.Flash.Contains(reset) {
		reset = b.layout.FallbackReset()
	}

	// Refusal lines are best-effort: the device halts whether or not the
	// host hears why.
	if !b.layout.ValidStackPointer(sp) {
		_ = b.emit(protocol.StatusBadSP)
		return b.halt(&LaunchError{Reason: "stack pointer outside RAM", SP: sp, Reset: reset})
	}
	if !b.layout.Flash.Contains(reset) {
		_ = b.emit(protocol.StatusBadReset)
		return b.halt(&LaunchError{Reason: "reset vector outside flash", SP: sp, Reset: reset})
	}

	if err := b.emit(protocol.StatusJumping); err != nil {
		return b.halt(fmt.Errorf("announcing jump: %w", err))
	}
	if err := b.tp.Drain(); err != nil {
		return b.halt(fmt.Errorf("quiescing transport: %w", err))
	}

	// Vector table redirect and branch form one atomic sequence with
	// interrupts masked until execution leaves the bootloader.
	b.sys.RunCritical(func() {
		b.sys.SetVectorBase(b.layout.App.Base)
		b.sys.Branch(sp, reset)
	})

	// Reached only when Branch returns, i.e. under simulation.
	return OutcomeLaunch, nil
}
