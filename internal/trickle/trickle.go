// Package trickle runs the background flusher that periodically copies
// dirty keys from the in-memory index out to data files, giving every key
// a durable on-disk copy independent of WAL replay. It does not delete or
// truncate WAL files, and it never removes entries from the index — RAM
// remains the primary read surface.
package trickle

import (
	"sync"
	"time"

	"github.com/clawstore/clawstore/internal/datafile"
	"github.com/clawstore/clawstore/internal/dirty"
	"github.com/clawstore/clawstore/internal/logging"
)

// Source is the subset of the in-memory index the flusher needs: a
// snapshot lookup for each dirty key. ok is false if the key is absent
// (i.e. it was deleted after being marked dirty).
type Source interface {
	Snapshot(key string) (value []byte, ok bool)
}

// Handle controls a running trickle loop.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start launches the background flush loop on its own goroutine, waking
// every cadence to drain the dirty tracker and write entries to writer.
// The returned Handle's Stop method performs one final flush before
// returning, matching the teacher's graceful-shutdown convention.
func Start(source Source, tracker *dirty.Tracker, writer *datafile.Writer, cadence time.Duration) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.loop(source, tracker, writer, cadence)
	return h
}

func (h *Handle) loop(source Source, tracker *dirty.Tracker, writer *datafile.Writer, cadence time.Duration) {
	defer close(h.done)
	defer writer.Close()

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			flushDirty(source, tracker, writer)
			return
		case <-ticker.C:
			flushDirty(source, tracker, writer)
		}
	}
}

// Stop signals the loop to perform a final flush and exit, then waits for
// it to finish. Safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// flushDirty executes one trickle cycle: drain the dirty set, snapshot
// each key's current value under the index's own lock, then write without
// holding any lock — the slow I/O never blocks readers or writers.
func flushDirty(source Source, tracker *dirty.Tracker, writer *datafile.Writer) {
	keys := tracker.Drain()
	if len(keys) == 0 {
		tracker.RecordCycle(0)
		return
	}

	var flushed uint64
	for _, key := range keys {
		value, ok := source.Snapshot(key)

		var err error
		if ok {
			_, err = writer.WriteEntry([]byte(key), value)
		} else {
			_, err = writer.WriteTombstone([]byte(key))
		}

		if err != nil {
			logging.Warnf("TRICKLE", "failed to flush key (%d bytes): %v", len(key), err)
			tracker.Remark(key)
			continue
		}
		flushed++
	}

	tracker.RecordCycle(flushed)
	if flushed > 0 {
		logging.Infof("TRICKLE", "flushed %d entries to data files", flushed)
	}
}
