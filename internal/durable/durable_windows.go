//go:build windows

package durable

import (
	"os"

	"golang.org/x/sys/windows"
)

// sync calls FlushFileBuffers, the Windows equivalent of fsync: it flushes
// the OS buffers for the handle and requests the device itself flush.
func sync(f *os.File) error {
	return windows.FlushFileBuffers(windows.Handle(f.Fd()))
}
