// Package uploader implements the host side of the BLUP update protocol:
// wait for the bootloader banner, send the handshake byte and image
// header, stream the image one page per CHUNK-OK, and track the device's
// status lines through final verification and jump.
package uploader

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blupboot/blup/internal/crc"
	"github.com/blupboot/blup/internal/protocol"
)

// Port is the byte channel to the device. serial.Transport and the
// simulator's ConnTransport both satisfy it.
type Port interface {
	io.Writer
	ReadByte(timeout time.Duration) (byte, error)
}

// ProgressCallback is called after each chunk is handed to the device.
type ProgressCallback func(current, total int)

// HandshakeByte is the single byte that wakes the bootloader out of its
// idle wait. Its value is irrelevant to the device, which discards it.
const HandshakeByte = 0x55

// Uploader drives one firmware upload over a Port.
type Uploader struct {
	port     Port
	progress ProgressCallback

	// ReadyTimeout bounds the wait for BOOTLOADER-READY.
	ReadyTimeout time.Duration
	// LineTimeout bounds the wait for every other status line. Flash
	// erase is the slow step, so it must cover a worst-case erase.
	LineTimeout time.Duration
}

// New creates an Uploader with the reference timeouts.
func New(port Port) *Uploader {
	return &Uploader{
		port:         port,
		ReadyTimeout: 10 * time.Second,
		LineTimeout:  15 * time.Second,
	}
}

// SetProgressCallback sets the progress callback function.
func (u *Uploader) SetProgressCallback(cb ProgressCallback) {
	u.progress = cb
}

func (u *Uploader) reportProgress(current, total int) {
	if u.progress != nil {
		u.progress(current, total)
	}
}

// WaitReady blocks until the device announces itself.
func (u *Uploader) WaitReady() error {
	return u.expect(protocol.StatusReady, u.ReadyTimeout)
}

// Upload performs the complete update sequence for image. The caller is
// expected to have seen the ready banner first (WaitReady); the device
// must still be idle.
func (u *Uploader) Upload(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("empty image")
	}

	hdr := protocol.NewHeader(uint32(len(image)), crc.Checksum(image))
	if _, err := u.port.Write([]byte{HandshakeByte}); err != nil {
		return fmt.Errorf("sending handshake: %w", err)
	}
	if _, err := u.port.Write(hdr.Encode()); err != nil {
		return fmt.Errorf("sending header: %w", err)
	}
	if err := u.expect(protocol.StatusHeaderOK, u.LineTimeout); err != nil {
		return fmt.Errorf("header rejected: %w", err)
	}

	total := int(protocol.PageCount(hdr.Size))
	for seq := 0; seq < total; seq++ {
		if err := u.expect(protocol.StatusChunkOK, u.LineTimeout); err != nil {
			return fmt.Errorf("chunk %d: %w", seq, err)
		}

		start := seq * protocol.PageSize
		end := start + protocol.PageSize
		if end > len(image) {
			end = len(image)
		}
		if _, err := u.port.Write(image[start:end]); err != nil {
			return fmt.Errorf("sending chunk %d: %w", seq, err)
		}

		u.reportProgress(seq+1, total)
	}

	for _, status := range []string{
		protocol.StatusUploaded,
		protocol.StatusVerifying,
		protocol.StatusVerifyOK,
		protocol.StatusSuccess,
		protocol.StatusJumping,
	} {
		if err := u.expect(status, u.LineTimeout); err != nil {
			return err
		}
	}

	return nil
}

// expect reads status lines until the wanted one arrives. Any error
// status aborts with a DeviceError; unrelated lines (a stale banner, echo
// artifacts) are skipped.
func (u *Uploader) expect(want string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Waiting: want, After: timeout}
		}

		line, err := u.readLine(remaining)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", want, err)
		}
		if line == want {
			return nil
		}
		if protocol.IsErrorStatus(line) {
			return &DeviceError{Status: line, Waiting: want}
		}
	}
}

// readLine assembles one newline-terminated status line within timeout.
func (u *Uploader) readLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	var sb strings.Builder
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &TimeoutError{Waiting: "status line", After: timeout}
		}
		b, err := u.port.ReadByte(remaining)
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return strings.TrimRight(sb.String(), "\r"), nil
		}
		sb.WriteByte(b)
	}
}
