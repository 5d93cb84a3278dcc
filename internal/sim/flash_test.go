package sim

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestFlash_StartsErased(t *testing.T) {
	f := NewFlash(8192)
	buf := make([]byte, 8192)
	if err := f.Read(0, buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("flash[%d] = 0x%02X, want 0xFF", i, b)
		}
	}
}

func TestFlash_ProgramRequiresErase(t *testing.T) {
	f := NewFlash(8192)
	page := make([]byte, 256)

	if err := f.Program(0, page); err != nil {
		t.Fatalf("first Program() error = %v", err)
	}
	if err := f.Program(0, page); err == nil {
		t.Fatal("second Program() into the same page succeeded, want error")
	}
	if err := f.Erase(0, 4096); err != nil {
		t.Fatalf("Erase() error = %v", err)
	}
	if err := f.Program(0, page); err != nil {
		t.Fatalf("Program() after erase error = %v", err)
	}
}

func TestFlash_AlignmentChecks(t *testing.T) {
	f := NewFlash(8192)

	if err := f.Erase(1, 4096); err == nil {
		t.Error("unaligned erase offset accepted")
	}
	if err := f.Erase(0, 100); err == nil {
		t.Error("non-sector erase length accepted")
	}
	if err := f.Program(7, make([]byte, 256)); err == nil {
		t.Error("unaligned program offset accepted")
	}
	if err := f.Program(0, make([]byte, 100)); err == nil {
		t.Error("partial-page program accepted")
	}
	if err := f.Program(8192-128, make([]byte, 256)); err == nil {
		t.Error("program past end of flash accepted")
	}
}

func TestFlash_RequireCritical(t *testing.T) {
	f := NewFlash(8192)
	sys := NewSystem()
	f.RequireCritical(sys)

	if err := f.Erase(0, 4096); err == nil {
		t.Error("erase outside critical section accepted")
	}

	var err error
	sys.RunCritical(func() {
		err = f.Erase(0, 4096)
	})
	if err != nil {
		t.Errorf("erase inside critical section error = %v", err)
	}

	// Reads need no guard.
	if err := f.Read(0, make([]byte, 16)); err != nil {
		t.Errorf("Read() error = %v", err)
	}
}

func TestFlash_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")

	f := NewFlash(8192)
	page := make([]byte, 256)
	for i := range page {
		page[i] = byte(i)
	}
	if err := f.Program(4096, page); err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	if err := f.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	g := NewFlash(8192)
	if err := g.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !bytes.Equal(g.Bytes(0, 8192), f.Bytes(0, 8192)) {
		t.Error("restored flash differs from saved flash")
	}

	// Restored written state still blocks double programming.
	if err := g.Program(4096, page); err == nil {
		t.Error("Program() into restored written page accepted")
	}
}
