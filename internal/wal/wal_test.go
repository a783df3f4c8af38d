package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clawstore/clawstore/internal/format"
	"github.com/stretchr/testify/require"
)

const (
	testMaxKey   = 1 << 16
	testMaxValue = 1 << 20
)

func TestWriterRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)

	require.NoError(t, w.AppendDurable([]byte("a"), []byte("1"), format.KindPut))
	require.NoError(t, w.AppendDurable([]byte("b"), []byte("2"), format.KindPut))
	require.NoError(t, w.AppendDurable([]byte("a"), nil, format.KindDelete))
	require.NoError(t, w.Close())

	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "a", string(records[0].Key))
	require.Equal(t, format.KindPut, records[0].Kind)
	require.Equal(t, "b", string(records[1].Key))
	require.Equal(t, format.KindPut, records[1].Kind)
	require.Equal(t, "a", string(records[2].Key))
	require.Equal(t, format.KindDelete, records[2].Kind)
}

func TestRecoverEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRecoverMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRecoverTornTailStopsSilently(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w.AppendDurable([]byte("good"), []byte("value"), format.KindPut))
	require.NoError(t, w.Close())

	// Append a truncated second record directly (simulating a crash
	// mid-write): a valid-looking header but no payload behind it.
	f, err := os.OpenFile(w.CurrentPath(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	partial, err := format.EncodeLogRecord([]byte("torn"), []byte("x"), format.KindPut, testMaxKey, testMaxValue)
	require.NoError(t, err)
	_, err = f.Write(partial[:len(partial)-3])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "good", string(records[0].Key))
}

func TestRecoverSkipsInteriorCorruptionAndResyncs(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w.AppendDurable([]byte("first"), []byte("1"), format.KindPut))

	corruptOffset := w.CurrentSize()
	require.NoError(t, w.AppendDurable([]byte("corrupted"), []byte("2"), format.KindPut))
	require.NoError(t, w.AppendDurable([]byte("third"), []byte("3"), format.KindPut))
	require.NoError(t, w.Close())

	// Flip a byte inside the second record's payload so its checksum fails,
	// without touching its magic or length fields.
	raw, err := os.ReadFile(w.CurrentPath())
	require.NoError(t, err)
	raw[int(corruptOffset)+format.LogHeaderSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(w.CurrentPath(), raw, 0o644))

	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "first", string(records[0].Key))
	require.Equal(t, "third", string(records[1].Key))
}

func TestRecoverSkipsRecordExceedingReaderConfiguredMaxima(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w.AppendDurable([]byte("first"), []byte("1"), format.KindPut))
	require.NoError(t, w.AppendDurable([]byte("toolong"), []byte("2"), format.KindPut))
	require.NoError(t, w.AppendDurable([]byte("third"), []byte("3"), format.KindPut))
	require.NoError(t, w.Close())

	// A reader configured with a tighter key cap than the writer used must
	// treat the now-oversized middle record as corruption and resync past
	// it, rather than returning it.
	records, err := NewReader(dir, len("first"), testMaxValue).Recover()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "first", string(records[0].Key))
	require.Equal(t, "third", string(records[1].Key))
}

func TestWriterRotatesAtThreshold(t *testing.T) {
	dir := t.TempDir()

	entry, err := format.EncodeLogRecord([]byte("k"), []byte("v"), format.KindPut, testMaxKey, testMaxValue)
	require.NoError(t, err)

	w, err := OpenWriter(dir, int64(len(entry)), testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w.AppendDurable([]byte("k"), []byte("v"), format.KindPut))
	firstPath := w.CurrentPath()

	require.NoError(t, w.AppendDurable([]byte("k2"), []byte("v2"), format.KindPut))
	require.NotEqual(t, firstPath, w.CurrentPath())
	require.NoError(t, w.Close())

	paths, err := filepath.Glob(filepath.Join(dir, "wal-*.claw"))
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestAppendFastRecoversAfterExplicitSync(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w.AppendFast([]byte("a"), []byte("1"), format.KindPut))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	records, err := NewReader(dir, testMaxKey, testMaxValue).Recover()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestOpenWriterResumesAtMaxSequence(t *testing.T) {
	dir := t.TempDir()

	w1, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NoError(t, w1.AppendDurable([]byte("a"), []byte("1"), format.KindPut))
	require.NoError(t, w1.Close())

	w2, err := OpenWriter(dir, 1<<20, testMaxKey, testMaxValue)
	require.NoError(t, err)
	require.NotEqual(t, w1.CurrentPath(), w2.CurrentPath())
	require.NoError(t, w2.Close())
}
