// Package seqfile names and discovers the monotonically-sequenced ".claw"
// files shared by the WAL and data-file writers: wal-<16 hex>.claw and
// data-<16 hex>.claw. Both writers rotate through the same naming scheme,
// so the scan-for-max-sequence and lexicographic-sort logic lives here once
// instead of being copied into each package.
package seqfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Name formats the file name for prefix ("wal" or "data") at sequence seq.
func Name(prefix string, seq uint64) string {
	return fmt.Sprintf("%s-%016x.claw", prefix, seq)
}

// MaxSequence scans dir for files named prefix-<16 hex>.claw (ignoring any
// ".compact" siblings) and returns the highest sequence found, or 0 if none
// exist.
func MaxSequence(dir, prefix string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var max uint64
	head, tail := prefix+"-", ".claw"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, head) || !strings.HasSuffix(name, tail) || strings.Contains(name, ".compact") {
			continue
		}
		hex := name[len(head) : len(name)-len(tail)]
		seq, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// List returns the full paths of every prefix-<16 hex>.claw file in dir
// (excluding ".compact" siblings), sorted lexicographically — equivalent to
// sequence order since the hex component is fixed-width.
func List(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	head, tail := prefix+"-", ".claw"
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, head) || !strings.HasSuffix(name, tail) || strings.Contains(name, ".compact") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
