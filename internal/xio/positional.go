package xio

import (
	"fmt"
	"os"
)

// ReadAt/WriteAt are thin, error-wrapped wrappers over *os.File's
// positional I/O, used by slim-mode stores for single-record fetch
// and write-through replace — the pread/pwrite semantics called for
// in the design, generalized from the teacher's line()/writeAt()
// which operate on newline-delimited text instead of fixed records.

// ReadRecordAt reads exactly len(buf) bytes at offset.
func ReadRecordAt(f *os.File, buf []byte, offset int64) error {
	if _, err := f.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("xio: pread at %d: %w", offset, err)
	}
	return nil
}

// WriteRecordAt writes buf at offset, overwriting in place.
func WriteRecordAt(f *os.File, buf []byte, offset int64) error {
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("xio: pwrite at %d: %w", offset, err)
	}
	return nil
}

// Size returns the current file size.
func Size(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("xio: stat: %w", err)
	}
	return info.Size(), nil
}
