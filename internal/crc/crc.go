// Package crc implements the reflected CRC-32 used by the BLUP update
// protocol. The parameters (polynomial 0xEDB88320, init 0xFFFFFFFF, final
// XOR 0xFFFFFFFF, LSB-first) match zlib's crc32, which is what host-side
// uploaders compute over the image. Any change here breaks compatibility
// with every deployed host tool.
package crc

// Poly is the reflected CRC-32 polynomial.
const Poly = 0xEDB88320

// Checksum computes the CRC-32 of data in one call.
func Checksum(data []byte) uint32 {
	return Finish(Update(Init(), data))
}

// Init returns the starting accumulator value.
func Init() uint32 {
	return 0xFFFFFFFF
}

// Update folds data into the accumulator. It can be called repeatedly to
// checksum an image page by page.
func Update(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ Poly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Finish applies the final XOR to the accumulator.
func Finish(crc uint32) uint32 {
	return crc ^ 0xFFFFFFFF
}
