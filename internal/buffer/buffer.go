// Package buffer provides the fixed-capacity in-memory mirror of pending
// records. It is the volatile working set derived from the durable log at
// boot and kept in step with it during runtime.
package buffer

import "github.com/tansey/vitals-edge/internal/model"

// Buffer is a fixed-capacity sample buffer. When full, the write cursor
// wraps to slot 0 and overwrites from the start instead of rotating a head
// pointer. Bounded memory is chosen over FIFO retention under overflow,
// and logical slot order stays aligned with the durable log's line order.
// Not safe for concurrent use — the poll loop owns it.
type Buffer struct {
	records  []model.Record
	capacity int
	writeIdx int
	count    int
}

// New creates an empty Buffer holding at most capacity records.
func New(capacity int) *Buffer {
	return &Buffer{
		records:  make([]model.Record, capacity),
		capacity: capacity,
	}
}

// Store places rec at the write cursor. Overflow is defined behavior, not
// a fault: once the buffer is full the cursor wraps to slot 0 and older
// entries are overwritten in place.
func (b *Buffer) Store(rec model.Record) {
	if b.writeIdx >= b.capacity {
		b.writeIdx = 0
	}
	b.records[b.writeIdx] = rec
	b.writeIdx++
	if b.count < b.capacity {
		b.count++
	}
}

// At returns the record at logical slot i. The caller bounds-checks
// against TotalStored; out-of-range reads report ok=false.
func (b *Buffer) At(i int) (model.Record, bool) {
	if i < 0 || i >= b.count {
		return model.Record{}, false
	}
	return b.records[i], true
}

// MarkSent flags slot i as delivered. Marking an already-sent slot or an
// out-of-range slot is a no-op.
func (b *Buffer) MarkSent(i int) {
	if i < 0 || i >= b.count {
		return
	}
	b.records[i].Sent = true
}

// TotalStored returns the number of records currently held, clamped to
// the buffer capacity.
func (b *Buffer) TotalStored() int {
	return b.count
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Reset empties the buffer and rewinds the write cursor. Called after a
// full drain, when the durable log has been cleared.
func (b *Buffer) Reset() {
	b.count = 0
	b.writeIdx = 0
}
