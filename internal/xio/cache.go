package xio

import "os"

// Default cache geometry per the design: width 2048 rows, 16 slots
// (depth) per row.
const (
	DefaultWidth = 2048
	DefaultDepth = 16
)

// Codec encodes/decodes a fixed-size record to/from bytes. Record
// types (NodeX, WayX, SegmentX, ...) implement this so that a single
// generic Cache type replaces the teacher's per-type
// CACHE_STRUCTURE(type) macro — see DESIGN.md for the generics
// rationale, enriched from the retrieval pack's generic/sharded cache
// designs since the teacher itself has no record cache.
type Codec[T any] interface {
	Size() int
	Encode(v T, buf []byte)
	Decode(buf []byte) T
}

// slot is one cell of the direct-mapped cache: an index and the
// decoded record value, both meaningful only when valid is set.
type slot[T any] struct {
	index int64
	valid bool
	value T
}

// Cache is a fixed-capacity, direct-mapped record cache over a
// record file: row = index mod width, each row holds depth slots,
// scanned linearly on fetch; misses evict round-robin per row and
// write through immediately. It never coalesces dirty writes — every
// Replace issues one positional write — which bounds restart damage
// to "start the phase over" rather than risking a torn batch.
type Cache[T any] struct {
	f      *os.File
	codec  Codec[T]
	width  int64
	depth  int
	rows   [][]slot[T]
	evict  []int // next-to-evict slot per row, round robin
	base   int64 // byte offset of record 0 in the file
}

// NewCache builds a cache of the given geometry over f, with record 0
// starting at byte offset base (typically a header size).
func NewCache[T any](f *os.File, codec Codec[T], width int64, depth int, base int64) *Cache[T] {
	if width <= 0 {
		width = DefaultWidth
	}
	if depth <= 0 {
		depth = DefaultDepth
	}
	rows := make([][]slot[T], width)
	for i := range rows {
		rows[i] = make([]slot[T], depth)
	}
	return &Cache[T]{
		f:     f,
		codec: codec,
		width: width,
		depth: depth,
		rows:  rows,
		evict: make([]int, width),
		base:  base,
	}
}

func (c *Cache[T]) row(index int64) int64 {
	r := index % c.width
	if r < 0 {
		r += c.width
	}
	return r
}

// Fetch returns the record at index, consulting the cache first and
// falling back to a positional read on miss. The fetched record is
// installed into the next-to-evict slot of its row.
func (c *Cache[T]) Fetch(index int64) (T, error) {
	row := c.rows[c.row(index)]
	for i := range row {
		if row[i].valid && row[i].index == index {
			return row[i].value, nil
		}
	}

	size := c.codec.Size()
	buf := make([]byte, size)
	if err := ReadRecordAt(c.f, buf, c.base+index*int64(size)); err != nil {
		var zero T
		return zero, err
	}
	value := c.codec.Decode(buf)

	r := c.row(index)
	e := c.evict[r]
	row[e] = slot[T]{index: index, valid: true, value: value}
	c.evict[r] = (e + 1) % c.depth

	return value, nil
}

// Replace overwrites the record at index both on disk (write-through)
// and, if present, in its cache slot; if absent, it is installed by
// evicting round-robin, matching Fetch's miss path.
func (c *Cache[T]) Replace(index int64, value T) error {
	size := c.codec.Size()
	buf := make([]byte, size)
	c.codec.Encode(value, buf)
	if err := WriteRecordAt(c.f, buf, c.base+index*int64(size)); err != nil {
		return err
	}

	r := c.row(index)
	row := c.rows[r]
	for i := range row {
		if row[i].valid && row[i].index == index {
			row[i].value = value
			return nil
		}
	}
	e := c.evict[r]
	row[e] = slot[T]{index: index, valid: true, value: value}
	c.evict[r] = (e + 1) % c.depth
	return nil
}

// Invalidate marks every slot empty, e.g. at a phase boundary after
// the underlying file has been replaced.
func (c *Cache[T]) Invalidate() {
	for r := range c.rows {
		for i := range c.rows[r] {
			c.rows[r][i] = slot[T]{}
		}
		c.evict[r] = 0
	}
}
