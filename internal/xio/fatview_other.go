//go:build !unix

package xio

import (
	"errors"
	"os"
)

// ErrFatModeUnsupported is returned by MapFatView on platforms without
// mmap(2) (mirrors the teacher's lock_windows.go/lock_unix.go split:
// one concern, two platform-specific files, no preprocessor fork).
var ErrFatModeUnsupported = errors.New("xio: fat mode requires mmap, unsupported on this platform")

// FatView is the non-unix stub; fat mode falls back to slim mode.
type FatView[T any] struct{}

func MapFatView[T any](f *os.File, codec Codec[T], base int64, writable bool) (*FatView[T], error) {
	return nil, ErrFatModeUnsupported
}

func (v *FatView[T]) At(index int64) T       { var zero T; return zero }
func (v *FatView[T]) Set(index int64, value T) {}
func (v *FatView[T]) Len() int64             { return 0 }
func (v *FatView[T]) Close() error           { return nil }
