// Package dirty tracks which keys have been modified in the in-memory
// index but not yet flushed to a data file, for the trickle flusher to
// drain on its cadence.
package dirty

import (
	"sync"
	"sync/atomic"
)

// Tracker is a mutex-guarded set of dirty keys plus lifetime flush
// counters. The zero value is not usable; construct with New.
type Tracker struct {
	mu   sync.Mutex
	keys map[string]struct{}

	totalFlushed atomic.Uint64
	totalCycles  atomic.Uint64
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{keys: make(map[string]struct{})}
}

// Mark records key as dirty. Called after the in-memory index has already
// been updated — marking before the index update would let the trickle
// flusher observe a key it cannot yet find.
func (t *Tracker) Mark(key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys[string(key)] = struct{}{}
}

// Drain returns every currently dirty key and clears the set. The keys are
// returned as strings (Go map keys are immutable), ready for the caller to
// convert back to []byte.
func (t *Tracker) Drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.keys))
	for k := range t.keys {
		out = append(out, k)
	}
	t.keys = make(map[string]struct{})
	return out
}

// Count returns the number of keys currently dirty.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.keys)
}

// RecordCycle accounts for a completed trickle cycle that flushed n
// entries (n may be zero — a cycle with nothing to do still counts).
func (t *Tracker) RecordCycle(n uint64) {
	t.totalFlushed.Add(n)
	t.totalCycles.Add(1)
}

// TotalFlushed returns the lifetime count of entries flushed.
func (t *Tracker) TotalFlushed() uint64 { return t.totalFlushed.Load() }

// TotalCycles returns the lifetime count of trickle cycles completed.
func (t *Tracker) TotalCycles() uint64 { return t.totalCycles.Load() }

// Remark re-adds key to the dirty set — used when a flush attempt for key
// failed and must be retried on the next cycle.
func (t *Tracker) Remark(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys[key] = struct{}{}
}
