// Package engine ties the index, WAL, dirty tracker, and trickle flusher
// together into a single crash-safe key-value store.
//
// Read path: index-first, sub-microsecond via RWMutex.
// Write path: WAL-first (durable_sync or fast), then index, then mark dirty.
// Background: trickle flushes dirty entries to data files on cadence.
package engine

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/clawstore/clawstore/internal/clawerr"
	"github.com/clawstore/clawstore/internal/compaction"
	"github.com/clawstore/clawstore/internal/config"
	"github.com/clawstore/clawstore/internal/datafile"
	"github.com/clawstore/clawstore/internal/dirty"
	"github.com/clawstore/clawstore/internal/format"
	"github.com/clawstore/clawstore/internal/index"
	"github.com/clawstore/clawstore/internal/logging"
	"github.com/clawstore/clawstore/internal/trickle"
	"github.com/clawstore/clawstore/internal/wal"
)

// Engine is the core storage façade. All public methods are safe for
// concurrent use; writers serialize through the WAL mutex, then briefly
// hold the index's write lock.
type Engine struct {
	index  *index.Index
	walMu  sync.Mutex
	wal    *wal.Writer
	dirty  *dirty.Tracker

	trickleMu sync.Mutex
	trickle   *trickle.Handle

	path string
	cfg  *config.Config
}

// Open creates (or resumes) an engine rooted at path: it ensures the wal/
// and data/ subdirectories exist, replays the WAL for crash recovery, and
// readies a WAL writer positioned past the recovered entries. It does not
// start the trickle flusher — call StartTrickle explicitly, since WAL
// durability alone is sufficient for crash safety.
func Open(path string, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	walDir := filepath.Join(path, "wal")
	dataDir := filepath.Join(path, "data")

	if err := os.MkdirAll(walDir, 0o755); err != nil {
		return nil, clawerr.Wrap(walDir, err, "failed to create WAL directory")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, clawerr.Wrap(dataDir, err, "failed to create data directory")
	}

	idx := index.New()

	reader := wal.NewReader(walDir, cfg.MaxKeySize, cfg.MaxValueSize)
	records, err := reader.Recover()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		switch rec.Kind {
		case format.KindPut:
			idx.LoadUnlocked(string(rec.Key), rec.Value)
		case format.KindDelete:
			idx.DeleteUnlocked(string(rec.Key))
		}
	}
	if n := idx.Len(); n > 0 {
		logging.Infof("ENGINE", "recovered %d entries from WAL at %s", n, walDir)
	}

	writer, err := wal.OpenWriter(walDir, cfg.WALRotationSize, cfg.MaxKeySize, cfg.MaxValueSize)
	if err != nil {
		return nil, err
	}

	if err := compaction.CleanOrphans(dataDir); err != nil {
		return nil, err
	}

	return &Engine{
		index: idx,
		wal:   writer,
		dirty: dirty.New(),
		path:  path,
		cfg:   cfg,
	}, nil
}

// Get returns a defensive copy of the value stored for key. It never
// touches the WAL or disk — the index is the hot path.
func (e *Engine) Get(key []byte) ([]byte, bool) {
	return e.index.Get(string(key))
}

// Put writes key/value with full durability: WAL append with a durable
// sync, then index insert, then mark dirty. If the WAL append fails, the
// index is never touched.
func (e *Engine) Put(key, value []byte) error {
	e.walMu.Lock()
	err := e.wal.AppendDurable(key, value, format.KindPut)
	e.walMu.Unlock()
	if err != nil {
		return err
	}

	e.index.Put(string(key), value)
	e.dirty.Mark(key)
	return nil
}

// PutFast writes key/value without a durable sync — still WAL-first and
// still marks dirty, but the caller must call SyncWAL to commit the batch.
func (e *Engine) PutFast(key, value []byte) error {
	e.walMu.Lock()
	err := e.wal.AppendFast(key, value, format.KindPut)
	e.walMu.Unlock()
	if err != nil {
		return err
	}

	e.index.Put(string(key), value)
	e.dirty.Mark(key)
	return nil
}

// SyncWAL forces the WAL to durable media, committing any batch of
// PutFast calls made since the last sync.
func (e *Engine) SyncWAL() error {
	e.walMu.Lock()
	defer e.walMu.Unlock()
	return e.wal.Sync()
}

// Delete removes key with full durability: a durable tombstone append,
// then index removal, then mark dirty so trickle writes the tombstone to
// a data file too.
func (e *Engine) Delete(key []byte) error {
	e.walMu.Lock()
	err := e.wal.AppendDurable(key, nil, format.KindDelete)
	e.walMu.Unlock()
	if err != nil {
		return err
	}

	e.index.Delete(string(key))
	e.dirty.Mark(key)
	return nil
}

// Contains reports whether key is present in the index.
func (e *Engine) Contains(key []byte) bool {
	return e.index.Contains(string(key))
}

// Len returns the number of keys currently held in the index.
func (e *Engine) Len() int {
	return e.index.Len()
}

// IsEmpty reports whether the index has no entries.
func (e *Engine) IsEmpty() bool {
	return e.index.Len() == 0
}

// Path returns the engine's root directory.
func (e *Engine) Path() string {
	return e.path
}

// DirtyCount returns the number of keys waiting to be flushed by trickle.
func (e *Engine) DirtyCount() int {
	return e.dirty.Count()
}

// TotalFlushed returns the lifetime count of entries flushed to data
// files.
func (e *Engine) TotalFlushed() uint64 {
	return e.dirty.TotalFlushed()
}

// TrickleCycles returns the lifetime count of trickle cycles completed.
func (e *Engine) TrickleCycles() uint64 {
	return e.dirty.TotalCycles()
}

// PrefixScan returns every key-value pair whose key starts with prefix,
// with the prefix stripped from each returned key, sorted by key — the
// bridge a table-scoped adapter layer would build a cursor on top of.
func (e *Engine) PrefixScan(prefix []byte) [][2][]byte {
	matches := e.index.PrefixScan(string(prefix))

	keys := make([]string, 0, len(matches))
	for k := range matches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2][]byte, 0, len(matches))
	for _, k := range keys {
		out = append(out, [2][]byte{[]byte(k[len(prefix):]), matches[k]})
	}
	return out
}

// PrefixCount counts keys starting with prefix without copying values.
func (e *Engine) PrefixCount(prefix []byte) int {
	return e.index.PrefixCount(string(prefix))
}

// StartTrickle launches the background flusher on cfg's cadence. Not
// starting it is valid — the WAL provides crash safety regardless;
// trickle only gives each key an on-disk copy in a data file. WAL files
// are kept either way.
func (e *Engine) StartTrickle() error {
	e.trickleMu.Lock()
	defer e.trickleMu.Unlock()

	if e.trickle != nil {
		return nil
	}

	dataDir := filepath.Join(e.path, "data")
	writer, err := datafile.OpenWriter(dataDir, e.cfg.DataRotationSize, e.cfg.MaxKeySize, e.cfg.MaxValueSize)
	if err != nil {
		return err
	}

	e.trickle = trickle.Start(e.index, e.dirty, writer, e.cfg.TrickleCadence)
	return nil
}

// StopTrickle gracefully stops the background flusher, performing one
// final flush first. A no-op if trickle was never started.
func (e *Engine) StopTrickle() {
	e.trickleMu.Lock()
	defer e.trickleMu.Unlock()

	if e.trickle == nil {
		return
	}
	e.trickle.Stop()
	e.trickle = nil
}

// Compact runs the compactor over every data file exceeding the
// configured dead-space ratio.
func (e *Engine) Compact() ([]compaction.Result, error) {
	dataDir := filepath.Join(e.path, "data")
	return compaction.CompactDirectory(dataDir, e.cfg.CompactionTriggerRatio, e.cfg.MaxKeySize, e.cfg.MaxValueSize)
}

// Close stops the trickle flusher (if running) and closes the WAL
// writer, syncing it first.
func (e *Engine) Close() error {
	e.StopTrickle()

	e.walMu.Lock()
	defer e.walMu.Unlock()
	return e.wal.Close()
}
