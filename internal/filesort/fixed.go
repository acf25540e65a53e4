package filesort

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ogrid/graphcore/internal/xio"
)

// Fixed sorts a file of fixed-width records: filesort_fixed(in, out,
// record_size, pre?, compare, post?) from §4.B, with record_size
// supplied implicitly by codec.Size().
func Fixed[T any](inPath, outPath string, codec xio.Codec[T], pre PreFunc[T], compare CompareFunc[T], post PostFunc[T], opts Options) error {
	runs, err := buildFixedRuns(inPath, codec, pre, compare, opts)
	if err != nil {
		return fmt.Errorf("filesort.Fixed: %w", err)
	}
	defer func() {
		for _, rf := range runs {
			os.Remove(rf.path)
		}
	}()

	if err := mergeFixed(runs, outPath, codec, compare, post); err != nil {
		return fmt.Errorf("filesort.Fixed: %w", err)
	}
	return nil
}

func buildFixedRuns[T any](inPath string, codec xio.Codec[T], pre PreFunc[T], compare CompareFunc[T], opts Options) ([]runFile, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	recSize := codec.Size()
	batchCap := int(opts.ramBytes() / int64(recSize))
	if batchCap < 1 {
		batchCap = 1
	}

	r := bufio.NewReaderSize(f, 256*1024)
	buf := make([]byte, recSize)

	var (
		seq     int64
		batch   = make([]taggedRecord[T], 0, batchCap)
		runIdx  int
		mu      sync.Mutex
		runs    []runFile
		dir     = opts.tempDir()
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.threads())

	spawn := func(b []taggedRecord[T], idx int) {
		g.Go(func() error {
			rf, err := spillFixed(b, idx, codec, compare, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			runs = append(runs, rf)
			mu.Unlock()
			return nil
		})
	}
	_ = dir

	for {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		rec := codec.Decode(buf)
		keep := true
		if pre != nil {
			keep = pre(&rec, seq)
		}
		seq++
		if !keep {
			continue
		}
		batch = append(batch, taggedRecord[T]{seq: seq - 1, rec: rec})
		if len(batch) >= batchCap {
			spawn(batch, runIdx)
			runIdx++
			batch = make([]taggedRecord[T], 0, batchCap)
		}
	}
	if len(batch) > 0 {
		spawn(batch, runIdx)
		runIdx++
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

func spillFixed[T any](batch []taggedRecord[T], idx int, codec xio.Codec[T], compare CompareFunc[T], opts Options) (runFile, error) {
	slices.SortFunc(batch, func(a, b taggedRecord[T]) int {
		if c := compare(a.rec, b.rec); c != 0 {
			return c
		}
		return preserveOrder(a, b)
	})

	recSize := codec.Size()
	compress := opts.Compress && int64(len(batch)*recSize) >= CompressThreshold

	path := runPath(opts.tempDir(), idx)
	w, f, err := newRunWriter(path, compress)
	if err != nil {
		return runFile{}, err
	}

	seqBuf := make([]byte, 8)
	recBuf := make([]byte, recSize)
	for _, tr := range batch {
		binary.LittleEndian.PutUint64(seqBuf, uint64(tr.seq))
		if _, err := w.Write(seqBuf); err != nil {
			f.Close()
			return runFile{}, err
		}
		codec.Encode(tr.rec, recBuf)
		if _, err := w.Write(recBuf); err != nil {
			f.Close()
			return runFile{}, err
		}
	}
	if err := w.Close(); err != nil {
		return runFile{}, err
	}
	return runFile{path: path, compressed: compress}, nil
}

func mergeFixed[T any](runs []runFile, outPath string, codec xio.Codec[T], compare CompareFunc[T], post PostFunc[T]) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	ow := bufio.NewWriterSize(out, 256*1024)

	recSize := codec.Size()
	sources := make([]*mergeSource[T], 0, len(runs))
	closers := make([]io.Closer, 0, len(runs))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, rf := range runs {
		rc, err := newRunReader(rf.path, rf.compressed)
		if err != nil {
			return err
		}
		closers = append(closers, rc)
		br := bufio.NewReaderSize(rc, 256*1024)
		seqBuf := make([]byte, 8)
		recBuf := make([]byte, recSize)
		next := func() (taggedRecord[T], bool, error) {
			_, err := io.ReadFull(br, seqBuf)
			if err == io.EOF {
				var zero taggedRecord[T]
				return zero, false, nil
			}
			if err != nil {
				var zero taggedRecord[T]
				return zero, false, err
			}
			if _, err := io.ReadFull(br, recBuf); err != nil {
				var zero taggedRecord[T]
				return zero, false, err
			}
			seq := int64(binary.LittleEndian.Uint64(seqBuf))
			rec := codec.Decode(recBuf)
			return taggedRecord[T]{seq: seq, rec: rec}, true, nil
		}
		sources = append(sources, &mergeSource[T]{next: next})
	}

	var outIndex int64
	recBuf := make([]byte, recSize)
	err = mergeAll(sources, compare, func(tr taggedRecord[T]) error {
		rec := tr.rec
		keep := true
		if post != nil {
			keep = post(&rec, outIndex)
		}
		if !keep {
			return nil
		}
		codec.Encode(rec, recBuf)
		if _, err := ow.Write(recBuf); err != nil {
			return err
		}
		outIndex++
		return nil
	})
	if err != nil {
		return err
	}
	return ow.Flush()
}
