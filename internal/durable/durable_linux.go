//go:build linux

package durable

import (
	"os"

	"golang.org/x/sys/unix"
)

// sync calls fdatasync(2), which forces file data (but not metadata like
// atime/mtime) to persistent media. Faster than fsync and sufficient for
// clawstore's durability contract, which never depends on metadata sync.
func sync(f *os.File) error {
	for {
		err := unix.Fdatasync(int(f.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
