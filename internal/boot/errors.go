package boot

import "fmt"

// ChunkTimeoutError indicates a firmware chunk did not arrive within the
// per-byte timeout budget. Flash may be partially programmed.
type ChunkTimeoutError struct {
	Page int
}

func (e *ChunkTimeoutError) Error() string {
	return fmt.Sprintf("chunk %d timed out", e.Page)
}

// PageVerifyError indicates the readback of a just-programmed page did not
// match the data received for it.
type PageVerifyError struct {
	Page   int
	Offset uint32
}

func (e *PageVerifyError) Error() string {
	return fmt.Sprintf("page %d readback mismatch at flash offset 0x%X", e.Page, e.Offset)
}

// CRCMismatchError indicates the whole-image CRC computed over flash does
// not match the header's expected value.
type CRCMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("image CRC mismatch: header says 0x%08X, flash has 0x%08X", e.Expected, e.Actual)
}

// LaunchError indicates the application image failed the launch guard.
type LaunchError struct {
	Reason string
	SP     uint32
	Reset  uint32
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch refused: %s (sp=0x%08X reset=0x%08X)", e.Reason, e.SP, e.Reset)
}
