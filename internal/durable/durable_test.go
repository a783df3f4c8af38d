package durable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncSucceedsOnValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.dat")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("durable sync test data"))
	require.NoError(t, err)

	require.NoError(t, Sync(f))
}
