// Package durable provides the one primitive the rest of clawstore relies
// on for crash safety: forcing bytes already written to an *os.File onto
// persistent media. The guarantee differs by platform — see the
// platform-specific files in this package — so callers never reach for
// file.Sync() directly on the durability path.
package durable

import "os"

// Sync forces all bytes written to f prior to the call onto persistent
// media. On success, those bytes will survive a power loss. It is also used
// on a parent directory's *os.File after an atomic rename, to persist the
// directory-entry change.
func Sync(f *os.File) error {
	return sync(f)
}
