package uploader

import (
	"fmt"
	"time"
)

// DeviceError indicates the bootloader reported a protocol failure while
// the host was waiting for a different status.
type DeviceError struct {
	Status  string
	Waiting string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device reported %q while waiting for %q", e.Status, e.Waiting)
}

// TimeoutError indicates an expected status line never arrived. After a
// fatal device-side failure the status stream simply stops, so this is
// also how a halted bootloader is observed from the host.
type TimeoutError struct {
	Waiting string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %q", e.After, e.Waiting)
}
