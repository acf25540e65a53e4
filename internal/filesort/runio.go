package filesort

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// newRunWriter opens path for writing a spilled run, optionally
// wrapping it in a zstd encoder. Carried from the teacher's
// compress.go, which compresses history snapshots with
// zstd.SpeedFastest; here the same speed-over-ratio tradeoff applies
// because run files are write-once, read-once and the sort is on the
// hot path of every pipeline run.
func newRunWriter(path string, compress bool) (io.WriteCloser, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("filesort: create run: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if !compress {
		return &flushCloser{bw, f}, f, nil
	}
	zw, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("filesort: zstd writer: %w", err)
	}
	return &zstdFlushCloser{zw, bw, f}, f, nil
}

type flushCloser struct {
	bw *bufio.Writer
	f  *os.File
}

func (c *flushCloser) Write(p []byte) (int, error) { return c.bw.Write(p) }
func (c *flushCloser) Close() error {
	if err := c.bw.Flush(); err != nil {
		return err
	}
	return c.f.Close()
}

type zstdFlushCloser struct {
	zw *zstd.Encoder
	bw *bufio.Writer
	f  *os.File
}

func (c *zstdFlushCloser) Write(p []byte) (int, error) { return c.zw.Write(p) }
func (c *zstdFlushCloser) Close() error {
	if err := c.zw.Close(); err != nil {
		return err
	}
	if err := c.bw.Flush(); err != nil {
		return err
	}
	return c.f.Close()
}

// newRunReader opens a spilled run for sequential reading, optionally
// unwrapping a zstd stream.
func newRunReader(path string, compress bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filesort: open run: %w", err)
	}
	if !compress {
		return f, nil
	}
	zr, err := zstd.NewReader(bufio.NewReaderSize(f, 64*1024))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filesort: zstd reader: %w", err)
	}
	return &zstdReadCloser{zr, f}, nil
}

type zstdReadCloser struct {
	zr *zstd.Decoder
	f  *os.File
}

func (c *zstdReadCloser) Read(p []byte) (int, error) { return c.zr.Read(p) }
func (c *zstdReadCloser) Close() error {
	c.zr.Close()
	return c.f.Close()
}
