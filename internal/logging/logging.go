// Package logging is a thin wrapper around the standard library logger so
// call sites read as structured tags instead of bare stderr writes. It
// mirrors the teacher's "[TRICKLE]"/"[WAL RECOVERY]"/"[COMPACTION]" prefix
// convention rather than introducing a third-party logging dependency (see
// DESIGN.md).
package logging

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// Warnf logs a recoverable-but-noteworthy event: corruption skipped during
// recovery, a trickle write that failed and was re-dirtied, and so on.
func Warnf(tag, format string, args ...any) {
	std.Printf("[%s] "+format, append([]any{tag}, args...)...)
}

// Infof logs routine operational information: recovery summaries,
// compaction results, trickle cycle counts.
func Infof(tag, format string, args ...any) {
	std.Printf("[%s] "+format, append([]any{tag}, args...)...)
}
