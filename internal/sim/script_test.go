package sim

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/blupboot/blup/internal/hal"
)

func TestScriptTransport_ReadAndStall(t *testing.T) {
	tp := NewScriptTransport([]byte{1, 2, 3})
	tp.StallAt(2)

	buf := make([]byte, 2)
	if err := tp.ReadFull(buf, time.Millisecond); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if buf[0] != 1 || buf[1] != 2 {
		t.Errorf("read % X, want 01 02", buf)
	}

	if _, err := tp.ReadByte(time.Millisecond); !errors.Is(err, hal.ErrTimeout) {
		t.Errorf("stalled ReadByte error = %v, want hal.ErrTimeout", err)
	}

	// A blocking read at the stall is a scenario bug, not a timeout.
	if _, err := tp.ReadByte(0); errors.Is(err, hal.ErrTimeout) || err == nil {
		t.Errorf("blocking stalled ReadByte error = %v, want hard error", err)
	}
}

func TestScriptTransport_FailWritesAfter(t *testing.T) {
	tp := NewScriptTransport(nil)
	tp.FailWritesAfter(1)

	if err := tp.WriteString("ONE\n"); err != nil {
		t.Fatalf("first WriteString() error = %v", err)
	}
	if err := tp.WriteString("TWO\n"); err == nil {
		t.Fatal("second WriteString() succeeded, want error")
	}
	if got, want := tp.Lines(), []string{"ONE"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}

func TestScriptTransport_Lines(t *testing.T) {
	tp := NewScriptTransport(nil)
	tp.WriteString("ONE\n")
	tp.WriteString("TWO\n")

	if got, want := tp.Lines(), []string{"ONE", "TWO"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %v, want %v", got, want)
	}
}
