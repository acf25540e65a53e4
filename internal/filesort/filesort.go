// Package filesort implements the external multi-way merge sort used
// throughout the extended-entity pipeline: records too large for RAM
// are partitioned into RAM-sized sorted runs, spilled to temp files,
// and merged with a k-way min-heap. Both entry points (Fixed, Vary)
// share the same contract — Pre/Compare/Post callbacks,
// FILESORT_PRESERVE_ORDER stability via a monotone sequence tag — and
// share the merge step; they differ only in how a record is framed on
// disk.
//
// Grounded on the teacher's repair.go, which performs the same
// "separate, sort in RAM, stream to a temp file, then swap in" dance
// for a single in-RAM pass; filesort generalizes it to arbitrarily
// large inputs via external runs and a k-way merge.
package filesort

import (
	"fmt"
	"os"
	"path/filepath"
)

// Options configures a sort call.
type Options struct {
	RAMBytes int64  // bytes of records per in-RAM run; 0 uses DefaultRAMBytes
	Threads  int    // run-builder goroutines; 0 or 1 means serial
	TempDir  string // directory for spilled run files; "" uses os.TempDir
	Compress bool   // zstd-compress spilled run files above CompressThreshold
}

// DefaultRAMBytes matches the 64 MiB slim-mode default from the
// configuration surface (§6 of the spec); fat-mode callers pass a
// larger Options.RAMBytes (256 MiB default, per config.Config).
const DefaultRAMBytes = 64 * 1024 * 1024

// CompressThreshold is the minimum run-file size, in bytes, above
// which a run is spilled zstd-compressed rather than raw. Below this
// size the CPU cost of compression is not worth the disk saved.
const CompressThreshold = 8 * 1024 * 1024

func (o Options) ramBytes() int64 {
	if o.RAMBytes <= 0 {
		return DefaultRAMBytes
	}
	return o.RAMBytes
}

func (o Options) threads() int {
	if o.Threads <= 0 {
		return 1
	}
	return o.Threads
}

func (o Options) tempDir() string {
	if o.TempDir == "" {
		return os.TempDir()
	}
	return o.TempDir
}

// taggedRecord pairs a record with a monotone sequence number assigned
// at read time, implementing FILESORT_PRESERVE_ORDER: when two
// records compare equal, the one read first (lower seq) sorts first,
// both within a single in-RAM run and across runs during the merge.
type taggedRecord[T any] struct {
	seq int64
	rec T
}

// preserveOrder is the FILESORT_PRESERVE_ORDER(a,b) macro: ±1 derived
// from original read order, the tiebreaker whenever Compare reports
// equality (Testable property 1: sort stability).
func preserveOrder[T any](a, b taggedRecord[T]) int {
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

func runPath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("filesort-run-%06d.tmp", idx))
}

// PreFunc inspects/mutates a record before it enters the sort,
// returning false to discard it.
type PreFunc[T any] func(rec *T, seen int64) bool

// CompareFunc orders two records; ties are broken by read order.
type CompareFunc[T any] func(a, b T) int

// PostFunc inspects the fully sorted, merged stream; returning false
// discards the record (e.g. to drop an adjacent duplicate).
type PostFunc[T any] func(rec *T, outIndex int64) bool

// runFile identifies one spilled, sorted run on disk.
type runFile struct {
	path       string
	compressed bool
}
