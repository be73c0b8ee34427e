// Package syncer drains buffered records to the collector on a
// rate-limited cadence, keeping the delivery bookkeeping in the buffer and
// the durable log in step with what actually reached the publisher.
package syncer

import (
	"time"

	"go.uber.org/zap"

	"github.com/tansey/vitals-edge/internal/buffer"
	"github.com/tansey/vitals-edge/internal/model"
	"github.com/tansey/vitals-edge/internal/publish"
	"github.com/tansey/vitals-edge/internal/store"
)

// DefaultInterval is the minimum spacing between drain attempts. It is
// also the retry backoff: a failed publish consumes the slot.
const DefaultInterval = 2 * time.Second

// State describes what the scheduler did on its last pass.
type State string

const (
	StateIdle     State = "IDLE"
	StateDraining State = "DRAINING"
	StateDrained  State = "DRAINED"
)

// Syncer walks the buffer one record per eligible tick, publishing each
// and marking it sent in both the buffer and the durable log before
// advancing. When the cursor reaches the end of the pending set, the log
// is cleared and the buffer reset. Not safe for concurrent use — the poll
// loop owns it.
type Syncer struct {
	buf      *buffer.Buffer
	store    *store.Log
	pub      publish.Publisher
	conn     publish.Status
	interval time.Duration
	log      *zap.Logger

	syncIndex int
	lastSync  time.Time
	state     State

	// OnPublished, if set, is invoked after every successful publish with
	// the record as delivered (Sent already true).
	OnPublished func(rec model.Record)
}

// New creates a Syncer draining buf to pub, gated on conn and spaced by at
// least interval.
func New(buf *buffer.Buffer, st *store.Log, pub publish.Publisher, conn publish.Status, interval time.Duration, logger *zap.Logger) *Syncer {
	return &Syncer{
		buf:      buf,
		store:    st,
		pub:      pub,
		conn:     conn,
		interval: interval,
		log:      logger,
		state:    StateIdle,
	}
}

// Tick runs one pass of the state machine. A pass proceeds only if the
// link is up, at least the minimum interval has elapsed since the last
// attempt, and records are pending. At most one record is published per
// pass.
func (s *Syncer) Tick(now time.Time) {
	total := s.buf.TotalStored()
	if total == 0 {
		s.state = StateIdle
		return
	}
	if !s.conn.IsAvailable() {
		return
	}
	if !s.lastSync.IsZero() && now.Sub(s.lastSync) < s.interval {
		return
	}
	s.state = StateDraining

	// Records delivered on the immediate path are already marked sent;
	// step past them without spending the publish slot.
	for s.syncIndex < total {
		rec, _ := s.buf.At(s.syncIndex)
		if !rec.Sent {
			break
		}
		s.syncIndex++
	}

	if s.syncIndex < total {
		rec, _ := s.buf.At(s.syncIndex)

		// The rate limit applies to attempts, not successes. Updating
		// lastSync before checking the outcome turns it into a fixed
		// backoff against a down sink.
		s.lastSync = now

		if err := s.pub.Publish(rec); err != nil {
			s.log.Warn("publish failed, will retry",
				zap.Int("index", s.syncIndex),
				zap.Error(err))
			return
		}

		s.buf.MarkSent(s.syncIndex)
		if err := s.store.MarkSent(s.syncIndex); err != nil {
			// The cursor still advances: durable state lags volatile
			// state until the next successful rewrite, at worst causing
			// one duplicate retransmission after a restart.
			s.log.Warn("mark sent failed, durable log lags buffer",
				zap.Int("index", s.syncIndex),
				zap.Error(err))
		}
		s.syncIndex++

		if s.OnPublished != nil {
			rec.Sent = true
			s.OnPublished(rec)
		}
	}

	if s.syncIndex >= s.buf.TotalStored() {
		s.finishDrain()
	}
}

// finishDrain clears the durable log and resets the buffer and cursor
// once every pending record has been delivered.
func (s *Syncer) finishDrain() {
	s.log.Info("drain complete",
		zap.Int("records", s.buf.TotalStored()))

	if err := s.store.Clear(); err != nil {
		s.log.Warn("clear record log", zap.Error(err))
	}
	s.buf.Reset()
	s.syncIndex = 0
	s.state = StateDrained
}

// SyncIndex returns the drain cursor.
func (s *Syncer) SyncIndex() int {
	return s.syncIndex
}

// Pending returns how many buffered records still await delivery.
func (s *Syncer) Pending() int {
	return s.buf.TotalStored() - s.syncIndex
}

// State returns what the scheduler did on its last pass.
func (s *Syncer) State() State {
	return s.state
}
