//go:build unix

package xio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FatView memory-maps a record file for fat-mode index access:
// base[i] becomes a direct slice index rather than a syscall. Not
// grounded in any repo of the retrieval pack — none of them memory-map
// a file — so golang.org/x/sys is named explicitly rather than traced
// to a teacher file; it was already pulled in indirectly by the
// teacher's own dependency graph (x/crypto, compress) and is the
// standard ecosystem path to mmap(2) from Go. See DESIGN.md.
type FatView[T any] struct {
	data  []byte
	codec Codec[T]
	base  int64
}

// MapFatView maps the record section of f (which must already be
// sized to its final length) starting at byte offset base, read-write
// when writable is true.
func MapFatView[T any](f *os.File, codec Codec[T], base int64, writable bool) (*FatView[T], error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("xio: stat: %w", err)
	}
	length := int(info.Size() - base)
	if length <= 0 {
		return &FatView[T]{codec: codec, base: base}, nil
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), base, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("xio: mmap: %w", err)
	}
	return &FatView[T]{data: data, codec: codec, base: base}, nil
}

// At decodes the record at index directly from the mapped region.
func (v *FatView[T]) At(index int64) T {
	size := int64(v.codec.Size())
	off := index * size
	return v.codec.Decode(v.data[off : off+size])
}

// Set encodes value in place over the mapped region (read-write maps
// only).
func (v *FatView[T]) Set(index int64, value T) {
	size := int64(v.codec.Size())
	off := index * size
	v.codec.Encode(value, v.data[off:off+size])
}

// Len returns the number of records currently mapped.
func (v *FatView[T]) Len() int64 {
	if v.codec.Size() == 0 {
		return 0
	}
	return int64(len(v.data)) / int64(v.codec.Size())
}

// Close unmaps the region.
func (v *FatView[T]) Close() error {
	if v.data == nil {
		return nil
	}
	if err := unix.Munmap(v.data); err != nil {
		return fmt.Errorf("xio: munmap: %w", err)
	}
	v.data = nil
	return nil
}
