// Package hal defines the narrow hardware interfaces the update core is
// written against: the serial byte transport, the flash controller, and
// the system primitives (interrupt masking, vector table, execution
// transfer). Real glue code and the in-memory simulator both implement
// these; the core in internal/boot never touches hardware directly.
package hal

import (
	"errors"
	"time"
)

// ErrTimeout is returned by transport reads that expire before a byte
// arrives.
var ErrTimeout = errors.New("read timed out")

// Transport is a blocking byte channel to the host. Implementations need
// no internal buffering discipline beyond what the methods state.
type Transport interface {
	// WriteString transmits a status line verbatim.
	WriteString(s string) error

	// ReadByte returns the next byte, waiting up to timeout for it.
	// A timeout <= 0 blocks until a byte arrives. Expiry returns
	// ErrTimeout.
	ReadByte(timeout time.Duration) (byte, error)

	// ReadFull fills buf, allowing up to perByte for each byte. A partial
	// read followed by expiry returns ErrTimeout.
	ReadFull(buf []byte, perByte time.Duration) error

	// Drain flushes pending output and quiesces the channel. Called once,
	// immediately before control leaves the bootloader.
	Drain() error
}

// Flash exposes the flash controller. Offsets are relative to the start
// of the flash window, not mapped addresses.
//
// Erase and Program require that no other code runs concurrently with the
// controller register sequence. The interface does not enforce that;
// callers must wrap every call in System.RunCritical. internal/boot funnels
// all mutation through a wrapper that does exactly this.
type Flash interface {
	// Erase erases whole sectors covering [offset, offset+length).
	// length must already be a sector-size multiple.
	Erase(offset, length uint32) error

	// Program writes data at offset. offset must be page aligned and
	// len(data) a whole number of pages, all previously erased.
	Program(offset uint32, data []byte) error

	// Read copies len(buf) bytes from flash at offset into buf.
	Read(offset uint32, buf []byte) error
}

// System groups the privileged primitives of the target.
type System interface {
	// RunCritical executes fn with asynchronous interrupts masked,
	// restoring them afterwards. The scoped-closure form makes "interrupts
	// disabled for operation X" structural rather than a convention.
	RunCritical(fn func())

	// SetVectorBase redirects the interrupt vector table pointer.
	SetVectorBase(addr uint32)

	// Branch sets the stack pointer and jumps to pc. On hardware this
	// never returns; every address fed to it must have been validated
	// beforehand, since branching to an unchecked value is unrecoverable
	// without a hardware reprogrammer. Call only inside RunCritical.
	Branch(sp, pc uint32)

	// Park halts forever, waiting for an external reset.
	Park()
}
