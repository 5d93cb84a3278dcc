package sim

import (
	"errors"
	"strings"
	"time"

	"github.com/blupboot/blup/internal/hal"
)

// ScriptTransport feeds the state machine a fixed byte sequence and
// records everything it emits. Deterministic and goroutine-free, it is the
// transport of choice for unit tests; StallAt simulates a host that stops
// sending mid-transfer.
type ScriptTransport struct {
	input     []byte
	pos       int
	stallAt   int
	writes    int
	failAfter int

	out    strings.Builder
	Drains int
}

// NewScriptTransport creates a transport that will serve exactly input.
func NewScriptTransport(input []byte) *ScriptTransport {
	return &ScriptTransport{input: input, stallAt: -1, failAfter: -1}
}

// StallAt makes every read at input index n (and beyond) time out, as if
// the host went silent after n bytes.
func (t *ScriptTransport) StallAt(n int) {
	t.stallAt = n
}

// FailWritesAfter makes every write fail once n writes have succeeded,
// as if the UART gave out mid-conversation.
func (t *ScriptTransport) FailWritesAfter(n int) {
	t.failAfter = n
}

// WriteString implements hal.Transport.
func (t *ScriptTransport) WriteString(s string) error {
	if t.failAfter >= 0 && t.writes >= t.failAfter {
		return errors.New("transport write failed")
	}
	t.writes++
	t.out.WriteString(s)
	return nil
}

// ReadByte implements hal.Transport.
func (t *ScriptTransport) ReadByte(timeout time.Duration) (byte, error) {
	stalled := t.pos >= len(t.input) || (t.stallAt >= 0 && t.pos >= t.stallAt)
	if stalled {
		if timeout > 0 {
			return 0, hal.ErrTimeout
		}
		// A blocking read past the script means the scenario would hang
		// on hardware; surface that as a hard error.
		return 0, errors.New("blocking read with no scripted input left")
	}
	b := t.input[t.pos]
	t.pos++
	return b, nil
}

// ReadFull implements hal.Transport.
func (t *ScriptTransport) ReadFull(buf []byte, perByte time.Duration) error {
	for i := range buf {
		b, err := t.ReadByte(perByte)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// Drain implements hal.Transport.
func (t *ScriptTransport) Drain() error {
	t.Drains++
	return nil
}

// Lines returns the status lines emitted so far, newline separators
// stripped.
func (t *ScriptTransport) Lines() []string {
	s := t.out.String()
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
