package crc

import (
	"hash/crc32"
	"testing"
)

func TestChecksum_KnownAnswer(t *testing.T) {
	// The standard check value for reflected CRC-32.
	got := Checksum([]byte("123456789"))
	if got != 0xCBF43926 {
		t.Errorf("Checksum(\"123456789\") = 0x%08X, want 0xCBF43926", got)
	}
}

func TestChecksum_MatchesHostSide(t *testing.T) {
	// Host uploaders use zlib's crc32; hash/crc32's IEEE table is the
	// same function, so the two must agree on everything.
	inputs := [][]byte{
		{},
		{0x00},
		{0xFF},
		[]byte("BLUP"),
		make([]byte, 256),
		make([]byte, 300),
	}
	for i := range inputs[4] {
		inputs[4][i] = byte(i)
	}
	for i := range inputs[5] {
		inputs[5][i] = byte(255 - i%256)
	}

	for _, in := range inputs {
		want := crc32.ChecksumIEEE(in)
		got := Checksum(in)
		if got != want {
			t.Errorf("Checksum(%d bytes) = 0x%08X, want 0x%08X", len(in), got, want)
		}
	}
}

func TestUpdate_Incremental(t *testing.T) {
	data := []byte("the quick brown firmware jumps over the lazy bootloader")

	whole := Checksum(data)

	// Page-by-page accumulation must match a single pass, since the
	// verifier reads the image back from flash in page-sized pieces.
	acc := Init()
	for start := 0; start < len(data); start += 7 {
		end := start + 7
		if end > len(data) {
			end = len(data)
		}
		acc = Update(acc, data[start:end])
	}

	if got := Finish(acc); got != whole {
		t.Errorf("incremental CRC = 0x%08X, want 0x%08X", got, whole)
	}
}
