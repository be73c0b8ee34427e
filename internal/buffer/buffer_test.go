package buffer

import (
	"testing"

	"github.com/tansey/vitals-edge/internal/model"
)

func rec(ts int64) model.Record {
	return model.Record{Temperature: 36.5, Humidity: 40, Timestamp: ts}
}

func TestStoreInOrder(t *testing.T) {
	b := New(10)
	for i := 0; i < 5; i++ {
		b.Store(rec(int64(i)))
	}

	if b.TotalStored() != 5 {
		t.Fatalf("expected TotalStored 5, got %d", b.TotalStored())
	}
	for i := 0; i < 5; i++ {
		got, ok := b.At(i)
		if !ok {
			t.Fatalf("slot %d: expected record", i)
		}
		if got.Timestamp != int64(i) {
			t.Errorf("slot %d: expected timestamp %d, got %d", i, i, got.Timestamp)
		}
	}
}

func TestFillToCapacity(t *testing.T) {
	b := New(4)
	for i := 0; i < 4; i++ {
		b.Store(rec(int64(i)))
	}

	if b.TotalStored() != 4 {
		t.Fatalf("expected TotalStored 4, got %d", b.TotalStored())
	}
	for i := 0; i < 4; i++ {
		got, _ := b.At(i)
		if got.Timestamp != int64(i) {
			t.Errorf("slot %d: expected timestamp %d, got %d", i, i, got.Timestamp)
		}
	}
}

func TestOverflowWrapsToSlotZero(t *testing.T) {
	b := New(4)
	for i := 0; i < 5; i++ {
		b.Store(rec(int64(i)))
	}

	// The fifth store lands on slot 0; TotalStored stays at capacity.
	if b.TotalStored() != 4 {
		t.Errorf("expected TotalStored clamped at 4, got %d", b.TotalStored())
	}
	got, _ := b.At(0)
	if got.Timestamp != 4 {
		t.Errorf("slot 0: expected timestamp 4, got %d", got.Timestamp)
	}
	got, _ = b.At(1)
	if got.Timestamp != 1 {
		t.Errorf("slot 1: expected timestamp 1, got %d", got.Timestamp)
	}
}

func TestOverflowContinuesFromSlotZero(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Store(rec(int64(i)))
	}

	// Stores 3 and 4 overwrote slots 0 and 1.
	want := []int64{3, 4, 2}
	for i, ts := range want {
		got, _ := b.At(i)
		if got.Timestamp != ts {
			t.Errorf("slot %d: expected timestamp %d, got %d", i, ts, got.Timestamp)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	b := New(4)
	b.Store(rec(0))

	if _, ok := b.At(1); ok {
		t.Error("expected ok=false beyond stored range")
	}
	if _, ok := b.At(-1); ok {
		t.Error("expected ok=false for negative index")
	}
}

func TestMarkSent(t *testing.T) {
	b := New(4)
	b.Store(rec(0))
	b.Store(rec(1))

	b.MarkSent(0)
	got, _ := b.At(0)
	if !got.Sent {
		t.Error("slot 0: expected sent after MarkSent")
	}
	got, _ = b.At(1)
	if got.Sent {
		t.Error("slot 1: expected unsent")
	}

	// Re-marking is a no-op.
	b.MarkSent(0)
	got, _ = b.At(0)
	if !got.Sent {
		t.Error("slot 0: expected sent after repeated MarkSent")
	}

	// Out of range is a no-op, not a panic.
	b.MarkSent(10)
}

func TestReset(t *testing.T) {
	b := New(4)
	for i := 0; i < 4; i++ {
		b.Store(rec(int64(i)))
	}

	b.Reset()
	if b.TotalStored() != 0 {
		t.Errorf("expected TotalStored 0 after reset, got %d", b.TotalStored())
	}
	if _, ok := b.At(0); ok {
		t.Error("expected no readable slots after reset")
	}

	// Writes restart at slot 0.
	b.Store(rec(9))
	got, _ := b.At(0)
	if got.Timestamp != 9 {
		t.Errorf("slot 0: expected timestamp 9, got %d", got.Timestamp)
	}
}
