//go:build !linux && !darwin && !windows

package durable

import "os"

// sync falls back to the standard library's data-sync equivalent on other
// POSIX platforms (e.g. FreeBSD). os.File.Sync maps to fsync(2) there,
// which clawstore's non-goal on strict metadata durability tolerates.
func sync(f *os.File) error {
	return f.Sync()
}
