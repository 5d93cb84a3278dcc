// Package protocol defines the BLUP update wire format: the 12-byte
// little-endian image header, the ASCII status lines the bootloader emits,
// and the page/sector arithmetic both ends must agree on.
package protocol

// HeaderMagic is "BLUP" read as a little-endian u32.
const HeaderMagic = 0x50554C42

// HeaderSize is the fixed encoded size of a Header.
const HeaderSize = 12

// Flash geometry of the target device.
const (
	// PageSize is the smallest programmable unit; one protocol chunk.
	PageSize = 256
	// SectorSize is the smallest erasable unit.
	SectorSize = 4096
)

// DefaultBaudRate is the UART rate of the reference deployment (8N1).
const DefaultBaudRate = 115200

// Status lines emitted by the bootloader. One-directional, newline
// terminated; the host never acknowledges them.
const (
	StatusReady            = "BOOTLOADER-READY"
	StatusHeaderOK         = "HEADER-OK"
	StatusMagicError       = "MAGIC-ERROR"
	StatusChunkOK          = "CHUNK-OK"
	StatusChunkError       = "CHUNK-ERROR"
	StatusFlashVerifyError = "FLASH-VERIFY-ERROR"
	StatusUploaded         = "FIRMWARE-UPLOADED"
	StatusVerifying        = "VERIFYING"
	StatusVerifyOK         = "VERIFY-OK"
	StatusVerifyError      = "VERIFY-ERROR"
	StatusSuccess          = "FIRMWARE-SUCCESS"
	StatusJumping          = "JUMPING-TO-APP"
	StatusBadSP            = "JUMP-ERROR: BAD-SP"
	StatusBadReset         = "JUMP-ERROR: BAD-RESET"
)

// IsErrorStatus reports whether a status line signals a failure.
func IsErrorStatus(line string) bool {
	switch line {
	case StatusMagicError, StatusChunkError, StatusFlashVerifyError,
		StatusVerifyError, StatusBadSP, StatusBadReset:
		return true
	}
	return false
}

// EraseSize rounds size up to the next sector boundary. This is the length
// the bootloader erases before programming an image of the given size.
func EraseSize(size uint32) uint32 {
	return (size + SectorSize - 1) &^ (SectorSize - 1)
}

// PageCount returns the number of page-sized chunks needed to transfer
// size bytes. The last chunk may be short on the wire but still occupies a
// full page in flash.
func PageCount(size uint32) uint32 {
	return (size + PageSize - 1) / PageSize
}
