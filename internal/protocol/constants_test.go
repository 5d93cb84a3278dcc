package protocol

import "testing"

func TestEraseSize(t *testing.T) {
	tests := []struct {
		size     uint32
		expected uint32
	}{
		{1, 4096},
		{4095, 4096},
		{4096, 4096},
		{4097, 8192},
		{8193, 12288},
	}

	for _, tc := range tests {
		if got := EraseSize(tc.size); got != tc.expected {
			t.Errorf("EraseSize(%d) = %d, want %d", tc.size, got, tc.expected)
		}
	}
}

func TestEraseSize_SmallestSufficientMultiple(t *testing.T) {
	// For every size the erase length is the smallest sector multiple
	// covering it.
	for size := uint32(1); size <= 3*SectorSize; size++ {
		got := EraseSize(size)
		if got%SectorSize != 0 {
			t.Fatalf("EraseSize(%d) = %d, not a sector multiple", size, got)
		}
		if got < size {
			t.Fatalf("EraseSize(%d) = %d, smaller than size", size, got)
		}
		if got-size >= SectorSize {
			t.Fatalf("EraseSize(%d) = %d, not the smallest multiple", size, got)
		}
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		size     uint32
		expected uint32
	}{
		{1, 1},
		{255, 1},
		{256, 1},
		{257, 2},
		{600, 3},
		{1024, 4},
	}

	for _, tc := range tests {
		if got := PageCount(tc.size); got != tc.expected {
			t.Errorf("PageCount(%d) = %d, want %d", tc.size, got, tc.expected)
		}
	}
}

func TestIsErrorStatus(t *testing.T) {
	errors := []string{
		StatusMagicError, StatusChunkError, StatusFlashVerifyError,
		StatusVerifyError, StatusBadSP, StatusBadReset,
	}
	for _, s := range errors {
		if !IsErrorStatus(s) {
			t.Errorf("IsErrorStatus(%q) = false, want true", s)
		}
	}

	ok := []string{
		StatusReady, StatusHeaderOK, StatusChunkOK, StatusUploaded,
		StatusVerifying, StatusVerifyOK, StatusSuccess, StatusJumping, "",
	}
	for _, s := range ok {
		if IsErrorStatus(s) {
			t.Errorf("IsErrorStatus(%q) = true, want false", s)
		}
	}
}
