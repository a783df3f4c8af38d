package seqfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameFormatsFixedWidthHex(t *testing.T) {
	require.Equal(t, "wal-0000000000000001.claw", Name("wal", 1))
	require.Equal(t, "data-000000000000002a.claw", Name("data", 42))
}

func TestMaxSequenceReturnsZeroForEmptyDir(t *testing.T) {
	dir := t.TempDir()
	seq, err := MaxSequence(dir, "wal")
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)
}

func TestMaxSequenceReturnsZeroForMissingDir(t *testing.T) {
	seq, err := MaxSequence(filepath.Join(t.TempDir(), "missing"), "wal")
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)
}

func TestMaxSequenceFindsHighest(t *testing.T) {
	dir := t.TempDir()
	for _, seq := range []uint64{1, 5, 3} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, Name("wal", seq)), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data-0000000000000009.claw"), nil, 0o644))

	seq, err := MaxSequence(dir, "wal")
	require.NoError(t, err)
	require.Equal(t, uint64(5), seq)
}

func TestMaxSequenceIgnoresCompactSiblings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Name("data", 1)), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, Name("data", 9)+".compact"), nil, 0o644))

	seq, err := MaxSequence(dir, "data")
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}

func TestListReturnsSortedPathsExcludingCompact(t *testing.T) {
	dir := t.TempDir()
	for _, seq := range []uint64{3, 1, 2} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, Name("wal", seq)), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, Name("wal", 2)+".compact"), nil, 0o644))

	paths, err := List(dir, "wal")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, Name("wal", 1)),
		filepath.Join(dir, Name("wal", 2)),
		filepath.Join(dir, Name("wal", 3)),
	}, paths)
}

func TestListReturnsNilForMissingDir(t *testing.T) {
	paths, err := List(filepath.Join(t.TempDir(), "missing"), "wal")
	require.NoError(t, err)
	require.Nil(t, paths)
}
