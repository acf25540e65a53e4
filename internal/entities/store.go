// Package entities implements the extended-entity stores
// (NodesX/WaysX/SegmentsX/TurnRelsX): append-only staging, external
// sort, ID→index maps, and the fat/slim lookup split, all on top of a
// single generic Store[T] type.
//
// Grounded directly on the teacher's DB lifecycle (jpl-au-folio's
// db.go/rename.go): a temp file under a configured directory, renamed
// to a canonical name on success, opened for random access once Sort
// has produced it. Unlike folio, each store's "document" is
// a fixed-width binary record, not a JSON line, so Store is generic
// over a record Codec instead of carrying one hard-coded schema, and
// it carries no header/section-offset table of its own. The
// pipeline's exclusive use of its temp directory for a run's lifetime
// is covered one level up, by internal/xio.DirLock in
// graphcore.Pipeline, not by this package.
package entities

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/ogrid/graphcore/internal/filesort"
	"github.com/ogrid/graphcore/internal/xio"
)

// ErrCountOverflow is returned by Append when the record count would
// exceed the u32 range the on-disk index format assumes.
var ErrCountOverflow = errors.New("entities: record count overflows uint32")

// ErrNotFound is returned by Index when no record with the given
// original id exists.
var ErrNotFound = errors.New("entities: id not found")

// IDFunc extracts a record's current identifier (its original OSM id
// before Sort, or its sorted-array index afterward).
type IDFunc[T any] func(T) uint64

// ReindexFunc returns a copy of rec with its id field replaced by its
// final sorted-array index, matching "id starts as the external OSM
// identifier; after sorting becomes the node's position in the sorted
// array" (§3).
type ReindexFunc[T any] func(rec T, index uint64) T

// Store is a generic extended-entity store.
type Store[T any] struct {
	name string
	dir  string
	slim bool

	codec  xio.Codec[T]
	idOf   IDFunc[T]
	reidx  ReindexFunc[T]

	w         *xio.SeqWriter
	buildPath string

	parsedPath string
	finalPath  string

	count    uint32
	finished bool
	sorted   bool

	idata []uint64 // sorted original ids, idata[i] is record i's original id

	f      *os.File
	caches map[int]*xio.Cache[T]
	fat    *xio.FatView[T]
}

// New creates a store named name under dir (e.g. "nodesx" under the
// configured temp directory), ready to Append records.
func New[T any](dir, name string, codec xio.Codec[T], idOf IDFunc[T], reidx ReindexFunc[T], slim bool) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("entities: mkdir %s: %w", dir, err)
	}
	buildPath := filepath.Join(dir, name+".building.mem")
	w, err := xio.NewSeqWriter(buildPath)
	if err != nil {
		return nil, err
	}
	return &Store[T]{
		name:      name,
		dir:       dir,
		slim:      slim,
		codec:     codec,
		idOf:      idOf,
		reidx:     reidx,
		w:         w,
		buildPath: buildPath,
		caches:    make(map[int]*xio.Cache[T]),
	}, nil
}

// Append writes one record to the end of the store.
func (s *Store[T]) Append(rec T) error {
	if s.finished {
		return fmt.Errorf("entities: %s: Append after Finish", s.name)
	}
	if s.count == math.MaxUint32 {
		return ErrCountOverflow
	}
	buf := make([]byte, s.codec.Size())
	s.codec.Encode(rec, buf)
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("entities: %s: append: %w", s.name, err)
	}
	s.count++
	return nil
}

// Finish flushes the append stream and renames it to the canonical
// "parsed" temp name, matching the §4.D phase-boundary rename
// convention ("nodesx.parsed.mem", etc.) so a restart can resume at a
// phase boundary.
func (s *Store[T]) Finish() error {
	if s.finished {
		return nil
	}
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("entities: %s: finish: %w", s.name, err)
	}
	s.parsedPath = filepath.Join(s.dir, s.name+".parsed.mem")
	if err := os.Rename(s.buildPath, s.parsedPath); err != nil {
		return fmt.Errorf("entities: %s: rename parsed: %w", s.name, err)
	}
	s.finished = true
	return nil
}

// Count returns the number of records currently appended (or, after
// Sort, the number retained).
func (s *Store[T]) Count() uint32 { return s.count }

// Sort sorts the parsed records with compare (optionally pre-filtering
// and post-filtering via filesort's contract), then builds idata[] for
// Index lookups and rewrites each record's id field to its final
// index, renaming the result to the canonical "<name>.mem" file and
// opening it for lookup.
func (s *Store[T]) Sort(compare filesort.CompareFunc[T], pre filesort.PreFunc[T], post filesort.PostFunc[T], opts filesort.Options) error {
	if !s.finished {
		if err := s.Finish(); err != nil {
			return err
		}
	}
	sortedPath := filepath.Join(s.dir, s.name+".sorted.mem")
	if err := filesort.Fixed(s.parsedPath, sortedPath, s.codec, pre, compare, post, opts); err != nil {
		return fmt.Errorf("entities: %s: sort: %w", s.name, err)
	}
	os.Remove(s.parsedPath)

	// Second pass: assign final indexes and build idata[].
	recSize := s.codec.Size()
	in, err := os.Open(sortedPath)
	if err != nil {
		return fmt.Errorf("entities: %s: reopen sorted: %w", s.name, err)
	}
	finalPath := filepath.Join(s.dir, s.name+".mem")
	out, err := os.Create(finalPath)
	if err != nil {
		in.Close()
		return fmt.Errorf("entities: %s: create final: %w", s.name, err)
	}

	buf := make([]byte, recSize)
	var idata []uint64
	var index uint64
	for {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF {
				break
			}
			in.Close()
			out.Close()
			return fmt.Errorf("entities: %s: read sorted: %w", s.name, err)
		}
		rec := s.codec.Decode(buf)
		idata = append(idata, s.idOf(rec))
		rec = s.reidx(rec, index)
		out2 := make([]byte, recSize)
		s.codec.Encode(rec, out2)
		if _, err := out.Write(out2); err != nil {
			in.Close()
			out.Close()
			return fmt.Errorf("entities: %s: write final: %w", s.name, err)
		}
		index++
	}
	in.Close()
	out.Close()
	os.Remove(sortedPath)

	s.idata = idata
	s.count = uint32(len(idata))
	s.finalPath = finalPath
	s.sorted = true

	return s.openForLookup()
}

func (s *Store[T]) openForLookup() error {
	f, err := os.OpenFile(s.finalPath, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("entities: %s: open final: %w", s.name, err)
	}
	s.f = f
	if !s.slim {
		fat, err := xio.MapFatView(f, s.codec, 0, true)
		if err == nil {
			s.fat = fat
		}
		// If mmap is unsupported on this platform, fall through to
		// slim-style caches below rather than failing the build.
	}
	return nil
}

// Index performs a binary search on idata[] for the original id,
// satisfying "Index(id) returning an index or a sentinel".
func (s *Store[T]) Index(id uint64) (uint32, bool) {
	i := sort.Search(len(s.idata), func(i int) bool { return s.idata[i] >= id })
	if i < len(s.idata) && s.idata[i] == id {
		return uint32(i), true
	}
	return 0, false
}

// OriginalID recovers the pre-sort OSM id for a sorted-array index,
// used by diagnostics so dropped/offending entities are reported by
// their original id, never the post-sort index (§7).
func (s *Store[T]) OriginalID(index uint32) uint64 {
	if int(index) >= len(s.idata) {
		return 0
	}
	return s.idata[index]
}

// cacheFor returns (creating if needed) the slim-mode cache dedicated
// to the caller-supplied slot, so independent routines walking the
// store concurrently never clobber one another's single-record
// buffer.
func (s *Store[T]) cacheFor(slot int) *xio.Cache[T] {
	c, ok := s.caches[slot]
	if !ok {
		c = xio.NewCache[T](s.f, s.codec, xio.DefaultWidth, xio.DefaultDepth, 0)
		s.caches[slot] = c
	}
	return c
}

// Lookup returns the record at index. In fat mode this reads directly
// from the mmap; in slim mode it goes through the per-slot
// direct-mapped cache.
func (s *Store[T]) Lookup(index uint32, slot int) (T, error) {
	if s.fat != nil {
		return s.fat.At(int64(index)), nil
	}
	return s.cacheFor(slot).Fetch(int64(index))
}

// PutBack writes rec back to index. In fat mode this mutates the
// mmap directly (a no-op beyond that write); in slim mode it writes
// through the per-slot cache. This is the borrow-then-commit idiom
// from DESIGN NOTES replacing the C LookupX/PutBackX pointer pattern.
func (s *Store[T]) PutBack(index uint32, rec T, slot int) error {
	if s.fat != nil {
		s.fat.Set(int64(index), rec)
		return nil
	}
	return s.cacheFor(slot).Replace(int64(index), rec)
}

// Free releases the store's handles. If keep is false the canonical
// file is removed; on success call sites normally pass keep=true and
// rely on Pipeline to decide final retention via Config.KeepIntermediate.
func (s *Store[T]) Free(keep bool) error {
	if s.fat != nil {
		s.fat.Close()
		s.fat = nil
	}
	if s.f != nil {
		s.f.Close()
		s.f = nil
	}
	if !keep {
		if s.finalPath != "" {
			os.Remove(s.finalPath)
		}
		if s.parsedPath != "" {
			os.Remove(s.parsedPath)
		}
	}
	return nil
}

// Path returns the store's current canonical file path (valid after
// Sort), used by the final writer and by restart/rename bookkeeping.
func (s *Store[T]) Path() string { return s.finalPath }

// EachParsed streams every record of the finished-but-not-yet-sorted
// append stream (the "<name>.parsed.mem" file Finish produces) in
// original append order, for a pass that must run before Sort assigns
// final indexes (e.g. a dedup key built by cross-referencing a
// sibling stream that is still keyed by original id).
func (s *Store[T]) EachParsed(fn func(T) error) error {
	if !s.finished {
		if err := s.Finish(); err != nil {
			return err
		}
	}
	f, err := os.Open(s.parsedPath)
	if err != nil {
		return fmt.Errorf("entities: %s: EachParsed: %w", s.name, err)
	}
	defer f.Close()

	recSize := s.codec.Size()
	buf := make([]byte, recSize)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("entities: %s: EachParsed: read: %w", s.name, err)
		}
		if err := fn(s.codec.Decode(buf)); err != nil {
			return err
		}
	}
}

// All reads every record into memory in index order, for the phases
// (pruning, super-segment construction) that need random incidence
// walks over the whole array rather than one-record-at-a-time lookup.
func (s *Store[T]) All() ([]T, error) {
	recs := make([]T, 0, s.count)
	for i := uint32(0); i < s.count; i++ {
		rec, err := s.Lookup(i, 0)
		if err != nil {
			return nil, fmt.Errorf("entities: %s: All: %w", s.name, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReplaceFromSlice writes recs to a fresh file and swaps it in for the
// store's canonical file via ReplaceFromFile, the in-memory
// counterpart to a rewrite pass that already holds every record (a
// pruning pass that mutates a []T in place, or a super-segment merge).
func (s *Store[T]) ReplaceFromSlice(recs []T) error {
	path := filepath.Join(s.dir, s.name+".replace.mem")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("entities: %s: ReplaceFromSlice: %w", s.name, err)
	}
	buf := make([]byte, s.codec.Size())
	for _, rec := range recs {
		s.codec.Encode(rec, buf)
		if _, err := f.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("entities: %s: ReplaceFromSlice: write: %w", s.name, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("entities: %s: ReplaceFromSlice: close: %w", s.name, err)
	}
	return s.ReplaceFromFile(path)
}

// ReplaceFromFile swaps the store's canonical file for the contents of
// path (e.g. the result of a stateful rewrite pass like
// ProcessSegments' dedup-and-length-compute step, which needs a
// lookahead filesort's Post callback cannot express) and reopens
// lookup handles over it. idata is left untouched: callers that
// replace a store whose Index is never consulted (SegmentsX) pass no
// further bookkeeping; callers that still need Index must have kept
// idata valid through the rewrite.
func (s *Store[T]) ReplaceFromFile(path string) error {
	if s.fat != nil {
		s.fat.Close()
		s.fat = nil
	}
	if s.f != nil {
		s.f.Close()
		s.f = nil
	}
	for slot := range s.caches {
		delete(s.caches, slot)
	}

	if err := os.Rename(path, s.finalPath); err != nil {
		return fmt.Errorf("entities: %s: replace: %w", s.name, err)
	}
	info, err := os.Stat(s.finalPath)
	if err != nil {
		return fmt.Errorf("entities: %s: stat replaced: %w", s.name, err)
	}
	s.count = uint32(info.Size() / int64(s.codec.Size()))
	return s.openForLookup()
}
