// Package store persists records as an append-only log of JSON lines and
// replays the unsent ones at boot. The file is the durable source of truth
// across restarts; the in-memory buffer is derived from it.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tansey/vitals-edge/internal/model"
)

// Log is the append-only durable record log. Not safe for concurrent use —
// the poll loop owns it.
type Log struct {
	path string
	log  *zap.Logger

	// marked counts delivery marks applied this session. MarkSent uses it
	// to make re-marking an already-marked index a no-op.
	marked int
}

// New creates a Log backed by the file at path. The file is created lazily
// on first append.
func New(path string, logger *zap.Logger) *Log {
	return &Log{path: path, log: logger}
}

// Append serializes rec and appends it as one line. The file handle is
// opened and closed per call so that no handle outlives the operation on
// any exit path.
func (l *Log) Append(rec model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open record log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// LoadUnsent reads the log and returns the records still awaiting
// delivery, in file order, capped at max. Malformed lines are skipped with
// a warning — a single corrupt line must not block recovery of the rest.
// A missing file is an empty log, not an error.
func (l *Log) LoadUnsent(max int) ([]model.Record, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record log: %w", err)
	}
	defer f.Close()

	var records []model.Record
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			l.log.Warn("skipping malformed record line",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		if rec.Sent {
			continue
		}

		if len(records) >= max {
			l.log.Warn("unsent backlog exceeds buffer capacity, truncating",
				zap.Int("capacity", max))
			break
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read record log: %w", err)
	}
	return records, nil
}

// MarkSent records delivery of the record at logical slot index. Delivery
// is sequential, so the target is the first line still flagged unsent; the
// whole file is decoded line by line, the flag flipped on that line, and
// the file rewritten. O(file size) per call, acceptable because the sync
// cadence is rate-limited and the log is bounded by the buffer capacity.
// Calling MarkSent again with an index that was already marked this
// session is a no-op.
func (l *Log) MarkSent(index int) error {
	if index < l.marked {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("open record log: %w", err)
	}

	lines := bytes.Split(data, []byte("\n"))
	flipped := false
	for i, raw := range lines {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Malformed lines are preserved as-is; LoadUnsent skips them.
			continue
		}
		if rec.Sent {
			continue
		}

		rec.Sent = true
		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		lines[i] = out
		flipped = true
		break
	}

	if flipped {
		tmp := l.path + ".tmp"
		if err := os.WriteFile(tmp, bytes.Join(lines, []byte("\n")), 0o644); err != nil {
			return fmt.Errorf("rewrite record log: %w", err)
		}
		if err := os.Rename(tmp, l.path); err != nil {
			return fmt.Errorf("replace record log: %w", err)
		}
	}

	l.marked = index + 1
	return nil
}

// Clear truncates the durable log entirely. Called only once the buffer
// has been fully drained.
func (l *Log) Clear() error {
	l.marked = 0
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear record log: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}
