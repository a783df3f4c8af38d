package clawerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := BadChecksum("wal-0000000000000001.claw", 128, 0xDEAD, 0xBEEF)
	require.True(t, Is(err, KindBadChecksum))
	require.False(t, Is(err, KindTornWrite))
}

func TestIsMatchesThroughWrappedError(t *testing.T) {
	inner := TornWrite("data-0000000000000001.claw", 64, 24, 10)
	wrapped := fmt.Errorf("replay failed: %w", inner)
	require.True(t, Is(wrapped, KindTornWrite))
}

func TestErrorIsSatisfiesStandardErrorsIs(t *testing.T) {
	sentinel := New(KindMalformed, "", 0, "bad kind byte")
	err := Wrap("data-0000000000000001.claw", sentinel, "decode failed")
	require.True(t, errors.Is(err, sentinel))
}

func TestErrorMessageIncludesPathAndOffsetWhenPresent(t *testing.T) {
	err := NoMagic("wal-0000000000000001.claw", 512, []byte{0, 1, 2, 3})
	require.Contains(t, err.Error(), "wal-0000000000000001.claw")
	require.Contains(t, err.Error(), "offset=512")
}

func TestErrorMessageOmitsPathWhenAbsent(t *testing.T) {
	err := Oversized("key", 2048, 1024)
	require.NotContains(t, err.Error(), "path=")
}

func TestUnwrapReturnsWrappedCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap("wal-0000000000000001.claw", cause, "append failed")
	require.Equal(t, cause, err.Unwrap())
}

func TestKindStringCoversAllVariants(t *testing.T) {
	kinds := []Kind{
		KindIO, KindOversized, KindNoMagic, KindBadChecksum,
		KindTornWrite, KindMalformed, KindSnapshotMemoryExceeded,
	}
	for _, k := range kinds {
		require.NotEqual(t, "unknown", k.String())
	}
}
