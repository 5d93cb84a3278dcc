package sim

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/blupboot/blup/internal/hal"
)

// ConnTransport adapts a net.Conn to hal.Transport, using read deadlines
// for the protocol's per-byte timeouts. With net.Pipe it links a simulated
// device to an uploader in the same process; the loopback tests and the
// simulate command's self-test mode run over it.
type ConnTransport struct {
	conn net.Conn
}

// NewConnTransport wraps conn.
func NewConnTransport(conn net.Conn) *ConnTransport {
	return &ConnTransport{conn: conn}
}

// WriteString implements hal.Transport.
func (t *ConnTransport) WriteString(s string) error {
	_, err := t.conn.Write([]byte(s))
	return err
}

// Write passes through to the connection, so the same adapter serves as an
// uploader-side port in loopback setups.
func (t *ConnTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

// ReadByte implements hal.Transport.
func (t *ConnTransport) ReadByte(timeout time.Duration) (byte, error) {
	if timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	} else {
		if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
			return 0, err
		}
	}

	var b [1]byte
	if _, err := t.conn.Read(b[:]); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, hal.ErrTimeout
		}
		return 0, err
	}
	return b[0], nil
}

// ReadFull implements hal.Transport. The per-byte budget is applied per
// read call; any read that makes progress resets it.
func (t *ConnTransport) ReadFull(buf []byte, perByte time.Duration) error {
	pos := 0
	for pos < len(buf) {
		if perByte > 0 {
			if err := t.conn.SetReadDeadline(time.Now().Add(perByte)); err != nil {
				return err
			}
		}
		n, err := t.conn.Read(buf[pos:])
		pos += n
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return hal.ErrTimeout
			}
			return err
		}
	}
	return nil
}

// Drain implements hal.Transport.
func (t *ConnTransport) Drain() error {
	return nil
}

// Close closes the underlying connection.
func (t *ConnTransport) Close() error {
	return t.conn.Close()
}
