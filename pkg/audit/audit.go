package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cuemby/bffhd/pkg/value"
)

// entry is one (OID, Value) pair in the JSON state projection. State is
// rendered generically from its entries rather than from any one
// domain's status model, since the audit log only ever sees a
// value.State and pkg/audit must not depend on pkg/resource.
type entry struct {
	OID   string `json:"oid"`
	Value string `json:"value"`
}

type line struct {
	Timestamp int64   `json:"timestamp"`
	Machine   string  `json:"machine"`
	State     []entry `json:"state"`
}

// Log is the append-only audit writer. The zero value is not usable;
// construct with Open.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	last int64
}

// Open opens (creating if necessary) the audit log file at path for
// appending.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &Log{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one JSON line for a committed transition on machine
// (spec.md §4.9). The timestamp is clamped to be monotonically
// non-decreasing across lines (spec.md §8 invariant 9), since wall-clock
// time is not guaranteed to advance between two transitions committed in
// the same second. No await/blocking call other than the write itself
// happens while the mutex is held (spec.md §5).
func (l *Log) Append(machine string, state value.State) error {
	entries := make([]entry, 0, len(state.Entries()))
	for _, e := range state.Entries() {
		entries = append(entries, entry{OID: e.OID.String(), Value: e.Value.String()})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Unix()
	if ts < l.last {
		ts = l.last
	}
	l.last = ts

	data, err := json.Marshal(line{Timestamp: ts, Machine: machine, State: entries})
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.w.Write(data); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return l.w.Flush()
}

// Rotate closes and reopens the log file at the same path (spec.md §9
// SIGHUP handling): it is meant to be called after an external tool has
// renamed the current file away, so the next Append starts a fresh file.
func (l *Log) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("audit: rotate: flush: %w", err)
	}
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("audit: rotate: close: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("audit: rotate: reopen: %w", err)
	}
	l.f = f
	l.w = bufio.NewWriter(f)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Close()
}
