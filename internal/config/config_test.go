package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsUndersizedWALRotation(t *testing.T) {
	c := Default()
	c.WALRotationSize = 1024
	require.Error(t, c.Validate())
}

func TestValidateRejectsOutOfRangeCompactionRatio(t *testing.T) {
	c := Default()
	c.CompactionTriggerRatio = 0
	require.Error(t, c.Validate())

	c.CompactionTriggerRatio = 1
	require.Error(t, c.Validate())

	c.CompactionTriggerRatio = 1.5
	require.Error(t, c.Validate())
}

func TestValidateRejectsZeroCadence(t *testing.T) {
	c := Default()
	c.TrickleCadence = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsKeySizeOutOfRange(t *testing.T) {
	c := Default()
	c.MaxKeySize = 0
	require.Error(t, c.Validate())

	c.MaxKeySize = 2048
	require.Error(t, c.Validate())
}

func TestValidateRejectsValueSizeOutOfRange(t *testing.T) {
	c := Default()
	c.MaxValueSize = 0
	require.Error(t, c.Validate())

	c.MaxValueSize = 256 << 20
	require.Error(t, c.Validate())
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.CompactionTriggerRatio = 0.5
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
