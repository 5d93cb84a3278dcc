package protocol

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed 12-byte structure that precedes an image upload.
// All fields are little-endian on the wire.
type Header struct {
	Magic uint32
	Size  uint32
	CRC32 uint32
}

// NewHeader builds the header for an image, computing nothing: callers
// supply the CRC so the same type serves both ends of the link.
func NewHeader(size, crc uint32) Header {
	return Header{Magic: HeaderMagic, Size: size, CRC32: crc}
}

// Encode serializes the header to its 12-byte wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Size)
	binary.LittleEndian.PutUint32(buf[8:12], h.CRC32)
	return buf
}

// ParseHeader decodes a header from raw bytes. It validates only the
// length; magic and size checks belong to the state machine, which reacts
// to them with different protocol signals.
func ParseHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, fmt.Errorf("header must be %d bytes, got %d", HeaderSize, len(data))
	}
	return Header{
		Magic: binary.LittleEndian.Uint32(data[0:4]),
		Size:  binary.LittleEndian.Uint32(data[4:8]),
		CRC32: binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

// ValidMagic reports whether the header carries the BLUP magic.
func (h Header) ValidMagic() bool {
	return h.Magic == HeaderMagic
}
