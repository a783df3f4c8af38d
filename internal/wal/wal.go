// Package wal implements the write-ahead log writer and recovery reader.
// The writer's append_durable is the fundamental durability contract:
// encode, write, fsync, THEN return — only after that may a caller update
// the in-memory index. The reader replays log records on open, tolerating
// a torn tail (the expected crash signature) and skipping interior
// corruption by resynchronizing on the next magic-byte occurrence.
package wal

import (
	"os"
	"path/filepath"

	"github.com/clawstore/clawstore/internal/clawerr"
	"github.com/clawstore/clawstore/internal/durable"
	"github.com/clawstore/clawstore/internal/format"
	"github.com/clawstore/clawstore/internal/logging"
	"github.com/clawstore/clawstore/internal/seqfile"
)

const filePrefix = "wal"

// Writer appends log records to the current WAL file, rotating to a new
// file once the rotation threshold is exceeded. Only one goroutine may hold
// a Writer's method call at a time — callers are expected to serialize
// access through a mutex (the engine façade does this); Writer itself does
// not lock, matching the "only the WAL mutex holder may append" discipline
// spec.md §5 assigns to its caller.
type Writer struct {
	file *os.File
	path string
	dir  string
	size int64
	seq  uint64

	rotationSize     int64
	maxKey, maxValue int
}

// OpenWriter opens (or creates) the WAL directory and resumes writing at
// max_seq+1, per spec.md §4.C. rotationSize is the byte threshold at which
// a new file is opened.
func OpenWriter(dir string, rotationSize int64, maxKey, maxValue int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, clawerr.Wrap(dir, err, "failed to create WAL directory")
	}

	maxSeq, err := seqfile.MaxSequence(dir, filePrefix)
	if err != nil {
		return nil, clawerr.Wrap(dir, err, "failed to scan WAL directory")
	}

	w := &Writer{
		dir:          dir,
		rotationSize: rotationSize,
		maxKey:       maxKey,
		maxValue:     maxValue,
	}
	if err := w.openSequence(maxSeq + 1); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openSequence(seq uint64) error {
	path := filepath.Join(w.dir, seqfile.Name(filePrefix, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return clawerr.Wrap(path, err, "failed to open WAL file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return clawerr.Wrap(path, err, "failed to stat WAL file")
	}

	w.file = f
	w.path = path
	w.seq = seq
	w.size = info.Size()
	return nil
}

// AppendDurable encodes and appends a record, rotating first if needed,
// then forces it onto persistent media before returning. If the write
// itself fails, size is left unchanged. If the sync fails, the writer is
// poisoned for this entry: the caller must not update the in-memory index,
// since it is unknown whether the bytes reached disk.
func (w *Writer) AppendDurable(key, value []byte, kind format.Kind) error {
	return w.append(key, value, kind, true)
}

// AppendFast is identical to AppendDurable but omits the sync, for callers
// batching writes under put_fast + an explicit later Sync.
func (w *Writer) AppendFast(key, value []byte, kind format.Kind) error {
	return w.append(key, value, kind, false)
}

func (w *Writer) append(key, value []byte, kind format.Kind, sync bool) error {
	entry, err := format.EncodeLogRecord(key, value, kind, w.maxKey, w.maxValue)
	if err != nil {
		return err
	}

	if w.size+int64(len(entry)) > w.rotationSize {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if _, err := w.file.Write(entry); err != nil {
		return clawerr.Wrap(w.path, err, "WAL write failed")
	}

	if sync {
		if err := durable.Sync(w.file); err != nil {
			return clawerr.Wrap(w.path, err, "WAL durable sync failed")
		}
	}

	w.size += int64(len(entry))
	return nil
}

// Sync forces the current WAL file to durable media without writing an
// entry — used to commit a batch of AppendFast calls at once.
func (w *Writer) Sync() error {
	if err := durable.Sync(w.file); err != nil {
		return clawerr.Wrap(w.path, err, "WAL sync failed")
	}
	return nil
}

// rotate syncs the current file, then opens a new one at seq+1.
func (w *Writer) rotate() error {
	if err := durable.Sync(w.file); err != nil {
		return clawerr.Wrap(w.path, err, "WAL sync before rotation failed")
	}
	if err := w.file.Close(); err != nil {
		return clawerr.Wrap(w.path, err, "failed to close WAL file before rotation")
	}
	return w.openSequence(w.seq + 1)
}

// CurrentPath returns the path of the WAL file currently being written.
func (w *Writer) CurrentPath() string { return w.path }

// CurrentSize returns the current WAL file's size in bytes.
func (w *Writer) CurrentSize() int64 { return w.size }

// Close closes the underlying file, syncing first.
func (w *Writer) Close() error {
	if err := durable.Sync(w.file); err != nil {
		w.file.Close()
		return clawerr.Wrap(w.path, err, "WAL sync on close failed")
	}
	return w.file.Close()
}

// Reader replays WAL entries on recovery.
type Reader struct {
	dir              string
	maxKey, maxValue int
}

// NewReader constructs a Reader over dir.
func NewReader(dir string, maxKey, maxValue int) *Reader {
	return &Reader{dir: dir, maxKey: maxKey, maxValue: maxValue}
}

// Recover replays every WAL file in dir, in file-then-offset order, per
// spec.md §4.C. A torn tail silently stops recovery of that file; interior
// corruption (bad checksum, bad magic, invalid kind byte) is skipped with a
// logged warning and recovery resynchronizes on the next magic occurrence.
// I/O errors reading a file are fatal and surface to the caller.
func (r *Reader) Recover() ([]format.LogRecord, error) {
	paths, err := seqfile.List(r.dir, filePrefix)
	if err != nil {
		return nil, clawerr.Wrap(r.dir, err, "failed to read WAL directory")
	}

	var all []format.LogRecord
	for _, path := range paths {
		records, err := r.recoverFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (r *Reader) recoverFile(path string) ([]format.LogRecord, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, clawerr.Wrap(path, err, "failed to read WAL file")
	}

	var records []format.LogRecord
	offset := 0

	for offset+format.LogHeaderSize <= len(buf) {
		if string(buf[offset:offset+4]) != string(format.Magic[:]) {
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			logging.Warnf("WAL RECOVERY", "bad magic at offset %d in %s, resyncing", offset, path)
			offset = next
			continue
		}

		rec, err := format.DecodeLogRecord(buf[offset:], path, int64(offset))
		if err != nil {
			if clawerr.Is(err, clawerr.KindTornWrite) {
				// Torn tail — the expected crash signature. Stop this file,
				// not an error.
				break
			}
			// Bad checksum or malformed payload: skip and resync.
			logging.Warnf("WAL RECOVERY", "corrupt entry at offset %d in %s: %v", offset, path, err)
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			offset = next
			continue
		}

		if len(rec.Key) > r.maxKey || len(rec.Value) > r.maxValue {
			// A record that parses cleanly but exceeds the configured caps
			// (e.g. written under a since-lowered limit) is treated the same
			// as any other malformed entry: skip it and resync.
			logging.Warnf("WAL RECOVERY", "oversized record at offset %d in %s exceeds configured maximum, skipping", offset, path)
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			offset = next
			continue
		}

		records = append(records, *rec)
		length := int(leUint32(buf[offset+4 : offset+8]))
		offset += format.LogHeaderSize + length
	}

	return records, nil
}

// findMagic scans buf for the next occurrence of the CLAW magic at or
// after start, returning its offset.
func findMagic(buf []byte, start int) (int, bool) {
	for i := start; i+4 <= len(buf); i++ {
		if buf[i] == format.Magic[0] && buf[i+1] == format.Magic[1] && buf[i+2] == format.Magic[2] && buf[i+3] == format.Magic[3] {
			return i, true
		}
	}
	return 0, false
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
