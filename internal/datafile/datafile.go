// Package datafile implements the on-disk storage layer that the trickle
// flusher and compactor write to: fixed-header, CRC32C-checksummed records
// durably synced on every write, with forward-resync corruption tolerance
// during a full scan.
package datafile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/clawstore/clawstore/internal/clawerr"
	"github.com/clawstore/clawstore/internal/durable"
	"github.com/clawstore/clawstore/internal/format"
	"github.com/clawstore/clawstore/internal/logging"
	"github.com/clawstore/clawstore/internal/seqfile"
)

const filePrefix = "data"

// Entry is a key-value pair recovered from a data file scan.
type Entry struct {
	Key         []byte
	Value       []byte
	Offset      int64
	IsTombstone bool
}

// Writer appends entries to the current data file, durably syncing every
// write — data files are the system of record once a key has been
// trickled out of the WAL, so every write here must survive power loss.
type Writer struct {
	file *os.File
	path string
	dir  string
	size int64
	seq  uint64

	rotationSize     int64
	maxKey, maxValue int
}

// OpenWriter opens (or creates) the data directory and resumes writing at
// max_seq+1.
func OpenWriter(dir string, rotationSize int64, maxKey, maxValue int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, clawerr.Wrap(dir, err, "failed to create data directory")
	}

	maxSeq, err := seqfile.MaxSequence(dir, filePrefix)
	if err != nil {
		return nil, clawerr.Wrap(dir, err, "failed to scan data directory")
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
		return clawerr.Wrap(path, err, "failed to open data file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return clawerr.Wrap(path, err, "failed to stat data file")
	}

	w.file = f
	w.path = path
	w.seq = seq
	w.size = info.Size()
	return nil
}

// WriteEntry writes a key-value pair and returns the byte offset it was
// written at, suitable for later random-access reads.
func (w *Writer) WriteEntry(key, value []byte) (int64, error) {
	return w.writeInternal(key, value, false)
}

// WriteTombstone writes a deletion marker for key and returns its offset.
func (w *Writer) WriteTombstone(key []byte) (int64, error) {
	return w.writeInternal(key, nil, true)
}

func (w *Writer) writeInternal(key, value []byte, tombstone bool) (int64, error) {
	entry, err := format.EncodeDataRecord(key, value, tombstone, w.maxKey, w.maxValue)
	if err != nil {
		return 0, err
	}

	if w.size > 0 && w.size+int64(len(entry)) > w.rotationSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	offset := w.size

	if _, err := w.file.Write(entry); err != nil {
		return 0, clawerr.Wrap(w.path, err, "data file write failed")
	}
	if err := durable.Sync(w.file); err != nil {
		return 0, clawerr.Wrap(w.path, err, "data file durable sync failed")
	}

	w.size += int64(len(entry))
	return offset, nil
}

// CurrentPath returns the path of the data file currently being written.
func (w *Writer) CurrentPath() string { return w.path }

// CurrentSize returns the current data file's size in bytes.
func (w *Writer) CurrentSize() int64 { return w.size }

// rotate syncs the current file, then opens a new one at seq+1.
func (w *Writer) rotate() error {
	if err := durable.Sync(w.file); err != nil {
		return clawerr.Wrap(w.path, err, "data file sync before rotation failed")
	}
	if err := w.file.Close(); err != nil {
		return clawerr.Wrap(w.path, err, "failed to close data file before rotation")
	}
	return w.openSequence(w.seq + 1)
}

// Close closes the underlying file, syncing first.
func (w *Writer) Close() error {
	if err := durable.Sync(w.file); err != nil {
		w.file.Close()
		return clawerr.Wrap(w.path, err, "data file sync on close failed")
	}
	return w.file.Close()
}

// ReadEntry reads a single entry at offset from path, rejecting a header
// whose key/value lengths exceed maxKey/maxValue before allocating either
// buffer. Returns ok=false for a tombstone (the caller has no value to use,
// only the fact of deletion).
func ReadEntry(path string, offset int64, maxKey, maxValue int) (entry Entry, ok bool, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return Entry{}, false, clawerr.Wrap(path, openErr, "failed to open data file")
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Entry{}, false, clawerr.Wrap(path, err, "failed to seek to data entry")
	}

	hdrBuf := make([]byte, format.DataHeaderSize)
	if _, err := io.ReadFull(f, hdrBuf); err != nil {
		return Entry{}, false, clawerr.Wrap(path, err, "failed to read data header")
	}
	hdr, err := format.DecodeDataHeader(hdrBuf, path, offset)
	if err != nil {
		return Entry{}, false, err
	}
	if int(hdr.KeyLen) > maxKey {
		return Entry{}, false, clawerr.Malformed(path, offset, "key length exceeds configured maximum")
	}
	if int(hdr.ValueLen) > maxValue {
		return Entry{}, false, clawerr.Malformed(path, offset, "value length exceeds configured maximum")
	}

	key := make([]byte, hdr.KeyLen)
	value := make([]byte, hdr.ValueLen)
	if _, err := io.ReadFull(f, key); err != nil {
		return Entry{}, false, clawerr.Wrap(path, err, "failed to read data key")
	}
	if _, err := io.ReadFull(f, value); err != nil {
		return Entry{}, false, clawerr.Wrap(path, err, "failed to read data value")
	}

	if got := format.Checksum(append(append([]byte{}, key...), value...)); got != hdr.Checksum {
		return Entry{}, false, clawerr.BadChecksum(path, offset, hdr.Checksum, got)
	}

	if hdr.IsTombstone() {
		return Entry{}, false, nil
	}
	return Entry{Key: key, Value: value, Offset: offset, IsTombstone: false}, true, nil
}

// ScanAll reads every recoverable entry from path, in offset order,
// tolerating interior corruption by resynchronizing on the next magic
// occurrence and stopping silently on a torn tail. Used by compaction and
// by any full-file audit.
func ScanAll(path string) ([]Entry, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, clawerr.Wrap(path, err, "failed to read data file for scan")
	}

	var entries []Entry
	offset := 0

	for offset+format.DataHeaderSize <= len(buf) {
		if string(buf[offset:offset+4]) != string(format.Magic[:]) {
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			logging.Warnf("DATA SCAN", "bad magic at offset %d in %s, resyncing", offset, path)
			offset = next
			continue
		}

		hdr, err := format.DecodeDataHeader(buf[offset:offset+format.DataHeaderSize], path, int64(offset))
		if err != nil {
			logging.Warnf("DATA SCAN", "malformed header at offset %d in %s: %v, resyncing", offset, path, err)
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			offset = next
			continue
		}

		total := format.DataHeaderSize + int(hdr.KeyLen) + int(hdr.ValueLen)
		if offset+total > len(buf) {
			// Torn tail — stop, not an error.
			break
		}

		key := buf[offset+format.DataHeaderSize : offset+format.DataHeaderSize+int(hdr.KeyLen)]
		value := buf[offset+format.DataHeaderSize+int(hdr.KeyLen) : offset+total]

		if got := format.Checksum(append(append([]byte{}, key...), value...)); got != hdr.Checksum {
			logging.Warnf("DATA SCAN", "checksum mismatch at offset %d in %s, skipping", offset, path)
			next, ok := findMagic(buf, offset+1)
			if !ok {
				break
			}
			offset = next
			continue
		}

		entries = append(entries, Entry{
			Key:         append([]byte{}, key...),
			Value:       append([]byte{}, value...),
			Offset:      int64(offset),
			IsTombstone: hdr.IsTombstone(),
		})
		offset += total
	}

	return entries, nil
}

func findMagic(buf []byte, start int) (int, bool) {
	for i := start; i+4 <= len(buf); i++ {
		if buf[i] == format.Magic[0] && buf[i+1] == format.Magic[1] && buf[i+2] == format.Magic[2] && buf[i+3] == format.Magic[3] {
			return i, true
		}
	}
	return 0, false
}
