// Package boot implements the BLUP update protocol state machine: wait for
// a host, validate the image header, erase the application slot, receive
// the image page by page with readback verification, confirm the whole
// image CRC, and hand control to the application through the launch guard.
//
// Failure semantics are deliberately asymmetric. An absent or unrecognized
// host is benign and falls back to launching the resident application; any
// failure after flash has been touched halts the device until an external
// reset, because neither a partially written image nor a retry into
// half-erased flash is safe to run.
package boot

import (
	"errors"
	"fmt"

	"github.com/blupboot/blup/internal/crc"
	"github.com/blupboot/blup/internal/hal"
	"github.com/blupboot/blup/internal/memmap"
	"github.com/blupboot/blup/internal/protocol"
)

// State identifies where in the update protocol a run currently is.
type State int

const (
	StateIdle State = iota
	StateAwaitingHeader
	StateErasing
	StateReceiving
	StateVerifying
	StateSuccess
	StateJump
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingHeader:
		return "awaiting-header"
	case StateErasing:
		return "erasing"
	case StateReceiving:
		return "receiving"
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateJump:
		return "jump"
	case StateHalted:
		return "halted"
	}
	return "unknown"
}

// Outcome is the terminal result of a Run.
type Outcome int

const (
	// OutcomeLaunch means control was (or would be) handed to the
	// application, either after a successful update or via a benign
	// fallback.
	OutcomeLaunch Outcome = iota
	// OutcomeHalt means the device must sit dead until an external reset.
	OutcomeHalt
)

// Bootloader drives one update attempt per boot. It owns the transfer
// session for the lifetime of the attempt; transport, flash and system are
// stateless services it invokes.
type Bootloader struct {
	tp     hal.Transport
	flash  *guardedFlash
	sys    hal.System
	layout memmap.Layout
	cfg    Config
	state  State
}

// New creates a Bootloader over the given hardware. The memory layout is
// validated here, once, so the state machine can trust it everywhere else.
func New(tp hal.Transport, flash hal.Flash, sys hal.System, layout memmap.Layout, opts ...Option) (*Bootloader, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("memory layout: %w", err)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Bootloader{
		tp:     tp,
		flash:  &guardedFlash{flash: flash, sys: sys},
		sys:    sys,
		layout: layout,
		cfg:    cfg,
	}, nil
}

// State returns the machine's current (or terminal) state.
func (b *Bootloader) State() State {
	return b.state
}

// Run executes one full update attempt and returns how the boot cycle
// ends. On hardware Run does not actually return: a halt parks forever in
// System.Park and a launch branches away in System.Branch. The outcome
// and error exist for simulated systems whose primitives give control
// back, which is how every test observes the machine.
func (b *Bootloader) Run() (Outcome, error) {
	b.state = StateIdle
	if err := b.emit(protocol.StatusReady); err != nil {
		return b.halt(err)
	}

	// Block unbounded for a handshake ping; the byte itself is discarded.
	if _, err := b.tp.ReadByte(0); err != nil {
		return b.halt(fmt.Errorf("waiting for handshake: %w", err))
	}

	b.state = StateAwaitingHeader
	raw := make([]byte, protocol.HeaderSize)
	if err := b.tp.ReadFull(raw, b.cfg.HeaderTimeout); err != nil {
		if errors.Is(err, hal.ErrTimeout) {
			// No header in time means no update was requested.
			return b.launch()
		}
		return b.halt(fmt.Errorf("reading header: %w", err))
	}

	hdr, err := protocol.ParseHeader(raw)
	if err != nil {
		return b.halt(err)
	}
	if !hdr.ValidMagic() || !b.layout.FitsApp(hdr.Size) {
		// An unrecognized or unusable header is not fatal: flash is still
		// intact, so fall back to the resident application. The rejection
		// line is best-effort, like every status on an abort path.
		_ = b.emit(protocol.StatusMagicError)
		return b.launch()
	}

	b.state = StateErasing
	if err := b.emit(protocol.StatusHeaderOK); err != nil {
		return b.halt(err)
	}
	if err := b.flash.erase(b.layout.AppOffset(), protocol.EraseSize(hdr.Size)); err != nil {
		return b.halt(fmt.Errorf("erasing application slot: %w", err))
	}

	b.state = StateReceiving
	if err := b.receiveImage(hdr.Size); err != nil {
		return b.halt(err)
	}

	b.state = StateVerifying
	if err := b.verifyImage(hdr); err != nil {
		return b.halt(err)
	}

	b.state = StateSuccess
	if err := b.emit(protocol.StatusSuccess); err != nil {
		return b.halt(err)
	}

	return b.launch()
}

// verifyImage recomputes the CRC over the image now resident in flash and
// compares it with the header's expectation. This is the end-to-end check;
// the per-page readback in the transfer loop only catches bad program
// cycles.
func (b *Bootloader) verifyImage(hdr protocol.Header) error {
	if err := b.emit(protocol.StatusVerifying); err != nil {
		return err
	}

	acc := crc.Init()
	buf := make([]byte, protocol.PageSize)
	offset := b.layout.AppOffset()
	remaining := hdr.Size
	for remaining > 0 {
		n := uint32(len(buf))
		if remaining < n {
			n = remaining
		}
		if err := b.flash.read(offset, buf[:n]); err != nil {
			return fmt.Errorf("reading back image: %w", err)
		}
		acc = crc.Update(acc, buf[:n])
		offset += n
		remaining -= n
	}

	if got := crc.Finish(acc); got != hdr.CRC32 {
		_ = b.emit(protocol.StatusVerifyError)
		return &CRCMismatchError{Expected: hdr.CRC32, Actual: got}
	}
	return b.emit(protocol.StatusVerifyOK)
}

func (b *Bootloader) emit(status string) error {
	return b.tp.WriteString(status + "\n")
}

// halt parks the system and seals the run. On hardware Park never
// returns; under simulation it records the park so the outcome and cause
// still reach the caller.
func (b *Bootloader) halt(err error) (Outcome, error) {
	b.state = StateHalted
	b.sys.Park()
	return OutcomeHalt, err
}
