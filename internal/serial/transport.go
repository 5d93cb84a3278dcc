package serial

import (
	"time"

	"github.com/blupboot/blup/internal/hal"
)

// Transport adapts a Port to hal.Transport so the update core can run
// over a real serial link (the simulate command) and so the uploader can
// share one read-with-timeout implementation with the loopback tests.
type Transport struct {
	port *Port
}

// NewTransport wraps an open port.
func NewTransport(port *Port) *Transport {
	return &Transport{port: port}
}

// WriteString implements hal.Transport.
func (t *Transport) WriteString(s string) error {
	_, err := t.port.Write([]byte(s))
	return err
}

// Write passes through to the port.
func (t *Transport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

// ReadByte implements hal.Transport. go.bug.st reports an expired read
// timeout as a zero-byte read, which is mapped to hal.ErrTimeout here.
func (t *Transport) ReadByte(timeout time.Duration) (byte, error) {
	var b [1]byte
	if timeout <= 0 {
		// Block until a byte arrives.
		for {
			n, err := t.port.ReadWithTimeout(b[:], time.Second)
			if err != nil {
				return 0, err
			}
			if n > 0 {
				return b[0], nil
			}
		}
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, hal.ErrTimeout
		}
		n, err := t.port.ReadWithTimeout(b[:], remaining)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return b[0], nil
		}
	}
}

// ReadFull implements hal.Transport with a per-byte timeout budget.
func (t *Transport) ReadFull(buf []byte, perByte time.Duration) error {
	for i := range buf {
		b, err := t.ReadByte(perByte)
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

// Drain implements hal.Transport: flush the transmitter before control
// leaves the bootloader.
func (t *Transport) Drain() error {
	return t.port.Drain()
}
