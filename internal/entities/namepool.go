package entities

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

// NamePool is the way-name pool: a single concatenated,
// null-terminated byte buffer, referenced by WayX.Way.Name as a byte
// offset (§3). Interning is keyed by an xxh3 hash bucket rather than a
// linear scan, carried from the teacher's hash.go multi-algorithm
// hashing abstraction (here fixed to xxh3, the fast non-cryptographic
// member of that family) so that SplitWays/write-out dedup stays O(1)
// amortized per name instead of O(n) per lookup.
type NamePool struct {
	path   string
	f      *os.File
	next   uint32
	bucket map[uint64][]poolEntry
}

type poolEntry struct {
	name   string
	offset uint32
}

// NewNamePool creates the pool file "waynames.mem" under dir.
func NewNamePool(dir string) (*NamePool, error) {
	path := filepath.Join(dir, "waynames.mem")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("entities: create name pool: %w", err)
	}
	// Offset 0 is reserved for the empty name (a lone NUL), so no real
	// name is ever interned there.
	if _, err := f.WriteAt([]byte{0}, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("entities: create name pool: %w", err)
	}
	return &NamePool{path: path, f: f, next: 1, bucket: make(map[uint64][]poolEntry)}, nil
}

// Intern returns name's byte offset into the pool, writing it (with
// its trailing NUL) the first time it is seen.
func (p *NamePool) Intern(name string) (uint32, error) {
	if name == "" {
		return 0, nil
	}
	h := xxh3.HashString(name)
	for _, e := range p.bucket[h] {
		if e.name == name {
			return e.offset, nil
		}
	}

	offset := p.next
	buf := append([]byte(name), 0)
	if _, err := p.f.WriteAt(buf, int64(offset)); err != nil {
		return 0, fmt.Errorf("entities: intern name: %w", err)
	}
	p.next += uint32(len(buf))
	p.bucket[h] = append(p.bucket[h], poolEntry{name: name, offset: offset})
	return offset, nil
}

// Len returns the pool's current byte length.
func (p *NamePool) Len() uint32 { return p.next }

// Path returns the pool's backing file path.
func (p *NamePool) Path() string { return p.path }

// Close closes the pool's backing file without removing it.
func (p *NamePool) Close() error { return p.f.Close() }

// Lookup reads the NUL-terminated name starting at offset, e.g. for
// the final writer copying the pool verbatim after the ways file or
// for diagnostics needing a human-readable way name.
func (p *NamePool) Lookup(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}
	buf := make([]byte, 256)
	n, err := p.f.ReadAt(buf, int64(offset))
	if err != nil && n == 0 {
		return "", fmt.Errorf("entities: lookup name at %d: %w", offset, err)
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf[:n]), nil
}
