//go:build darwin

package durable

import (
	"os"

	"golang.org/x/sys/unix"
)

// sync issues fcntl(F_FULLFSYNC). Plain fsync on Apple platforms only
// flushes to the drive's volatile write cache, which does not survive
// power loss; F_FULLFSYNC is the only primitive that defeats the cache.
func sync(f *os.File) error {
	for {
		_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
		if err != unix.EINTR {
			return err
		}
	}
}
