// Package detect discovers BLUP bootloaders by scanning serial ports for
// the BOOTLOADER-READY banner. The device emits the banner once on reset,
// so probing works when the host opens the port before or while the device
// resets.
package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/blupboot/blup/internal/protocol"
	"github.com/blupboot/blup/internal/serial"
)

// Result represents a detected bootloader.
type Result struct {
	Port string
}

// DefaultWait is how long a probe listens for the banner on one port.
const DefaultWait = 3 * time.Second

// DetectDevice tries all available ports and returns the first one with a
// bootloader announcing itself.
func DetectDevice(baudRate int, wait time.Duration) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(portName, baudRate, wait)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no bootloader found (last error: %w)", lastErr)
	}
	return nil, fmt.Errorf("no bootloader found")
}

// DetectOnPort probes a specific port.
func DetectOnPort(portName string, baudRate int, wait time.Duration) (*Result, error) {
	return tryPort(portName, baudRate, wait)
}

// ListDevices scans all ports and returns every bootloader found.
func ListDevices(baudRate int, wait time.Duration) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	var results []Result
	for _, portName := range ports {
		result, err := tryPort(portName, baudRate, wait)
		if err == nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

func tryPort(portName string, baudRate int, wait time.Duration) (*Result, error) {
	port, err := serial.Open(portName, baudRate)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	if err := waitForBanner(port, wait); err != nil {
		return nil, fmt.Errorf("%s: %w", portName, err)
	}

	return &Result{Port: portName}, nil
}

// waitForBanner accumulates incoming bytes until the ready banner shows up
// or the wait expires. Anything already in the buffer (application logs
// from before a reset) is tolerated.
func waitForBanner(port *serial.Port, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	var seen strings.Builder
	buf := make([]byte, 64)

	for time.Now().Before(deadline) {
		n, err := port.ReadWithTimeout(buf, 200*time.Millisecond)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		seen.Write(buf[:n])
		if strings.Contains(seen.String(), protocol.StatusReady) {
			return nil
		}
	}

	return fmt.Errorf("no %s banner within %s", protocol.StatusReady, wait)
}
