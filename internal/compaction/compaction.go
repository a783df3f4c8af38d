// Package compaction reclaims dead space (tombstones and stale
// overwrites) from data files. It scans a file, keeps only the latest live
// entry per key, and atomically replaces the original with the compacted
// version: write a temp file in the same directory, durably sync its
// contents through the platform-aware primitive, rename it over the
// original, then fsync the directory so the rename itself survives power
// loss.
package compaction

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clawstore/clawstore/internal/clawerr"
	"github.com/clawstore/clawstore/internal/datafile"
	"github.com/clawstore/clawstore/internal/durable"
	"github.com/clawstore/clawstore/internal/format"
	"github.com/clawstore/clawstore/internal/logging"
)

// Result reports the outcome of compacting a single data file.
type Result struct {
	FilePath        string
	OriginalEntries int
	LiveEntries     int
	RemovedEntries  int
	OriginalBytes   int64
	CompactedBytes  int64
}

// DeadSpaceRatio is the fraction of entries in the original file that were
// removed (tombstones plus stale overwrites). 0 means no waste.
func (r Result) DeadSpaceRatio() float64 {
	if r.OriginalEntries == 0 {
		return 0
	}
	return float64(r.RemovedEntries) / float64(r.OriginalEntries)
}

// BytesSaved is the byte-size reduction achieved by compaction.
func (r Result) BytesSaved() int64 {
	saved := r.OriginalBytes - r.CompactedBytes
	if saved < 0 {
		return 0
	}
	return saved
}

// CompactFile reads path, keeps only the latest live entry for each key
// (last-write-wins, tombstones dropped), and atomically replaces the
// original file with the compacted version.
func CompactFile(path string, maxKey, maxValue int) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, clawerr.Wrap(path, err, "failed to stat file for compaction")
	}
	originalBytes := info.Size()

	entries, err := datafile.ScanAll(path)
	if err != nil {
		return Result{}, err
	}
	originalEntries := len(entries)

	latest := make(map[string]datafile.Entry, len(entries))
	for _, e := range entries {
		latest[string(e.Key)] = e
	}

	var buf bytes.Buffer
	liveEntries := 0
	for _, e := range latest {
		if e.IsTombstone {
			continue
		}
		encoded, err := format.EncodeDataRecord(e.Key, e.Value, false, maxKey, maxValue)
		if err != nil {
			return Result{}, err
		}
		buf.Write(encoded)
		liveEntries++
	}

	if err := writeCompactedFile(path, buf.Bytes()); err != nil {
		return Result{}, err
	}

	if err := syncDir(filepath.Dir(path)); err != nil {
		return Result{}, err
	}

	compactedBytes := int64(buf.Len())

	return Result{
		FilePath:        path,
		OriginalEntries: originalEntries,
		LiveEntries:     liveEntries,
		RemovedEntries:  originalEntries - liveEntries,
		OriginalBytes:   originalBytes,
		CompactedBytes:  compactedBytes,
	}, nil
}

// NeedsCompaction reports whether path's dead-space ratio (tombstones plus
// stale overwrites, relative to total entries) meets or exceeds threshold.
func NeedsCompaction(path string, threshold float64) (bool, error) {
	entries, err := datafile.ScanAll(path)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}

	latestTombstone := make(map[string]bool, len(entries))
	for _, e := range entries {
		latestTombstone[string(e.Key)] = e.IsTombstone
	}

	live := 0
	for _, isTombstone := range latestTombstone {
		if !isTombstone {
			live++
		}
	}

	deadRatio := 1 - float64(live)/float64(len(entries))
	return deadRatio >= threshold, nil
}

// CompactDirectory compacts every data file in dir whose dead-space ratio
// meets or exceeds threshold, returning one Result per file compacted.
func CompactDirectory(dir string, threshold float64, maxKey, maxValue int) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, clawerr.Wrap(dir, err, "failed to read data directory")
	}

	var results []Result
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "data-") || !strings.HasSuffix(name, ".claw") || strings.Contains(name, ".compact") {
			continue
		}
		path := filepath.Join(dir, name)

		needs, err := NeedsCompaction(path, threshold)
		if err != nil {
			return nil, err
		}
		if !needs {
			continue
		}

		result, err := CompactFile(path, maxKey, maxValue)
		if err != nil {
			return nil, err
		}
		logging.Infof("COMPACTION", "%s: %d -> %d entries (%d bytes saved)", path, result.OriginalEntries, result.LiveEntries, result.BytesSaved())
		results = append(results, result)
	}

	return results, nil
}

// CleanOrphans removes leftover ".compact" temp files from a previous run
// that crashed between write and rename — they are harmless but otherwise
// accumulate forever.
func CleanOrphans(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return clawerr.Wrap(dir, err, "failed to read data directory for orphan cleanup")
	}

	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, ".compact") {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				return clawerr.Wrap(path, err, "failed to remove orphaned compact file")
			}
			logging.Infof("COMPACTION", "removed orphaned compact file %s", path)
		}
	}
	return nil
}

// writeCompactedFile durably replaces path's contents with data: write to a
// temp file in the same directory, durably sync it (the platform-aware
// primitive, not a plain fsync), then rename over path. Renaming the temp
// file survives a crash only once its own contents are synced first.
func writeCompactedFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".compact")
	if err != nil {
		return clawerr.Wrap(dir, err, "failed to create compaction temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return clawerr.Wrap(tmpPath, err, "failed to write compaction temp file")
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return clawerr.Wrap(tmpPath, err, "failed to chmod compaction temp file")
	}
	if err := durable.Sync(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return clawerr.Wrap(tmpPath, err, "failed to durably sync compaction temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return clawerr.Wrap(tmpPath, err, "failed to close compaction temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return clawerr.Wrap(path, err, fmt.Sprintf("failed to rename %s into place", tmpPath))
	}
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return clawerr.Wrap(dir, err, "failed to open directory for sync")
	}
	defer f.Close()
	if err := durable.Sync(f); err != nil {
		return clawerr.Wrap(dir, err, "failed to sync directory after compaction")
	}
	return nil
}
