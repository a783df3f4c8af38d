// Package config provides engine configuration with JSON load/save and
// validation, following the same pattern flashdb used for its server
// configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	minWALRotationSize  = 1 << 20   // 1 MiB
	maxKeySizeCap       = 1024      // 1 KiB
	maxValueSizeCap     = 128 << 20 // 128 MiB
	defaultWALRotation  = 100 << 20 // 100 MiB
	defaultDataRotation = 256 << 20 // 256 MiB
)

// Config holds every tunable the engine reads at Open. MaxSnapshotMemory
// and MaxSnapshotTTL are reserved for the snapshot feature layered on top
// of the core engine; they round-trip through Load/Save but are neither
// checked by Validate nor used here.
type Config struct {
	WALRotationSize        int64         `json:"wal_rotation_size"`
	DataRotationSize       int64         `json:"data_rotation_size"`
	CompactionTriggerRatio float64       `json:"compaction_trigger_ratio"`
	TrickleCadence         time.Duration `json:"trickle_cadence"`
	MaxKeySize             int           `json:"max_key_size"`
	MaxValueSize           int           `json:"max_value_size"`
	MaxSnapshotMemory      int64         `json:"max_snapshot_memory"`
	MaxSnapshotTTL         time.Duration `json:"max_snapshot_ttl"`
}

// Default returns the configuration the engine uses when none is
// supplied: 100 MiB WAL rotation, 256 MiB data-file rotation, 30%
// compaction trigger, a 500ms trickle cadence, and generous key/value
// caps.
func Default() *Config {
	return &Config{
		WALRotationSize:        defaultWALRotation,
		DataRotationSize:       defaultDataRotation,
		CompactionTriggerRatio: 0.3,
		TrickleCadence:         500 * time.Millisecond,
		MaxKeySize:             1024,
		MaxValueSize:           32 << 20,
		MaxSnapshotMemory:      1 << 30,
		MaxSnapshotTTL:         time.Hour,
	}
}

// Validate rejects configurations that would make the on-disk invariants
// unenforceable: an undersized WAL rotation threshold, a compaction ratio
// outside (0,1), a zero cadence, or a zero or over-cap key/value size.
func (c *Config) Validate() error {
	if c.WALRotationSize < minWALRotationSize {
		return fmt.Errorf("config: wal_rotation_size must be >= 1MiB, got %d", c.WALRotationSize)
	}
	if c.CompactionTriggerRatio <= 0 || c.CompactionTriggerRatio >= 1 {
		return fmt.Errorf("config: compaction_trigger_ratio must be in (0,1), got %f", c.CompactionTriggerRatio)
	}
	if c.TrickleCadence <= 0 {
		return fmt.Errorf("config: trickle_cadence must be > 0")
	}
	if c.MaxKeySize <= 0 || c.MaxKeySize > maxKeySizeCap {
		return fmt.Errorf("config: max_key_size must be in [1, %d], got %d", maxKeySizeCap, c.MaxKeySize)
	}
	if c.MaxValueSize <= 0 || c.MaxValueSize > maxValueSizeCap {
		return fmt.Errorf("config: max_value_size must be in [1, %d], got %d", maxValueSizeCap, c.MaxValueSize)
	}
	return nil
}

// Load reads a JSON configuration file at path, falling back to Default
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
