package boot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/blupboot/blup/internal/hal"
	"github.com/blupboot/blup/internal/protocol"
)

// transferSession tracks chunked-write progress during one image upload.
// The write cursor advances a whole page per chunk even when the final
// chunk is short, so every page is programmed exactly once on page-aligned
// boundaries.
type transferSession struct {
	total     uint32
	remaining uint32
	cursor    uint32 // flash offset of the next page to program
	page      int    // chunk index, for error reporting
}

func newTransferSession(size, appOffset uint32) *transferSession {
	return &transferSession{
		total:     size,
		remaining: size,
		cursor:    appOffset,
	}
}

// chunkLen returns the wire length of the next chunk.
func (s *transferSession) chunkLen() uint32 {
	if s.remaining > protocol.PageSize {
		return protocol.PageSize
	}
	return s.remaining
}

// advance records a fully programmed page carrying n wire bytes.
func (s *transferSession) advance(n uint32) {
	s.cursor += protocol.PageSize
	s.remaining -= n
	s.page++
}

// receiveImage runs the transfer session: for each page-sized chunk it
// signals readiness, reads the chunk with a bounded per-byte timeout,
// programs a full page, and verifies the page by reading it back. Any
// failure aborts the whole update; by this point the slot is erased, so
// the caller must halt.
func (b *Bootloader) receiveImage(size uint32) error {
	sess := newTransferSession(size, b.layout.AppOffset())
	page := make([]byte, protocol.PageSize)
	readback := make([]byte, protocol.PageSize)

	for sess.remaining > 0 {
		n := sess.chunkLen()

		// Pad with the erased-flash value so an appended tail is
		// indistinguishable from unwritten flash, and no stale bytes from
		// the previous chunk leak into this page.
		for i := range page {
			page[i] = 0xFF
		}

		if err := b.emit(protocol.StatusChunkOK); err != nil {
			return err
		}
		if err := b.tp.ReadFull(page[:n], b.cfg.ChunkTimeout); err != nil {
			if errors.Is(err, hal.ErrTimeout) {
				_ = b.emit(protocol.StatusChunkError)
				return &ChunkTimeoutError{Page: sess.page}
			}
			return fmt.Errorf("reading chunk %d: %w", sess.page, err)
		}

		if err := b.flash.program(sess.cursor, page); err != nil {
			return fmt.Errorf("programming page %d: %w", sess.page, err)
		}

		if err := b.flash.read(sess.cursor, readback[:n]); err != nil {
			return fmt.Errorf("reading back page %d: %w", sess.page, err)
		}
		if !bytes.Equal(readback[:n], page[:n]) {
			_ = b.emit(protocol.StatusFlashVerifyError)
			return &PageVerifyError{Page: sess.page, Offset: sess.cursor}
		}

		sess.advance(n)
	}

	return b.emit(protocol.StatusUploaded)
}
