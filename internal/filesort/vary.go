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
)

// FILESORT_VARSIZE is the byte width of the length prefix preceding
// every variable-length record, both in the source file and in
// spilled runs.
const varSizePrefix = 4

// VaryCodec encodes/decodes a variable-length record. Unlike Codec[T]
// (component A/B fixed records), there is no fixed Size(); the length
// is carried on the wire as a 4-byte prefix.
type VaryCodec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) T
}

// Vary sorts a file of length-prefixed variable-size records:
// filesort_vary(in, out, pre?, compare, post?) from §4.B.
func Vary[T any](inPath, outPath string, codec VaryCodec[T], pre PreFunc[T], compare CompareFunc[T], post PostFunc[T], opts Options) error {
	runs, err := buildVaryRuns(inPath, codec, pre, compare, opts)
	if err != nil {
		return fmt.Errorf("filesort.Vary: %w", err)
	}
	defer func() {
		for _, rf := range runs {
			os.Remove(rf.path)
		}
	}()

	if err := mergeVary(runs, outPath, codec, compare, post); err != nil {
		return fmt.Errorf("filesort.Vary: %w", err)
	}
	return nil
}

func readVaryRecord(r *bufio.Reader) ([]byte, bool, error) {
	var lenBuf [varSizePrefix]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, false, err
	}
	return buf, true, nil
}

func writeVaryRecord(w io.Writer, payload []byte) error {
	var lenBuf [varSizePrefix]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func buildVaryRuns[T any](inPath string, codec VaryCodec[T], pre PreFunc[T], compare CompareFunc[T], opts Options) ([]runFile, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 256*1024)

	ramBytes := opts.ramBytes()

	var (
		seq        int64
		batch      []taggedRecord[T]
		batchBytes int64
		runIdx     int
		mu         sync.Mutex
		runs       []runFile
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.threads())

	spawn := func(b []taggedRecord[T], idx int) {
		g.Go(func() error {
			rf, err := spillVary(b, idx, codec, compare, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			runs = append(runs, rf)
			mu.Unlock()
			return nil
		})
	}

	for {
		payload, ok, err := readVaryRecord(r)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if !ok {
			break
		}
		rec := codec.Decode(payload)
		keep := true
		if pre != nil {
			keep = pre(&rec, seq)
		}
		seq++
		if !keep {
			continue
		}
		batch = append(batch, taggedRecord[T]{seq: seq - 1, rec: rec})
		batchBytes += int64(len(payload)) + varSizePrefix
		if batchBytes >= ramBytes {
			spawn(batch, runIdx)
			runIdx++
			batch = nil
			batchBytes = 0
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

func spillVary[T any](batch []taggedRecord[T], idx int, codec VaryCodec[T], compare CompareFunc[T], opts Options) (runFile, error) {
	slices.SortFunc(batch, func(a, b taggedRecord[T]) int {
		if c := compare(a.rec, b.rec); c != 0 {
			return c
		}
		return preserveOrder(a, b)
	})

	var totalBytes int64
	encoded := make([][]byte, len(batch))
	for i, tr := range batch {
		encoded[i] = codec.Encode(tr.rec)
		totalBytes += int64(len(encoded[i]))
	}
	compress := opts.Compress && totalBytes >= CompressThreshold

	path := runPath(opts.tempDir(), idx)
	w, f, err := newRunWriter(path, compress)
	if err != nil {
		return runFile{}, err
	}

	seqBuf := make([]byte, 8)
	for i, tr := range batch {
		binary.LittleEndian.PutUint64(seqBuf, uint64(tr.seq))
		if _, err := w.Write(seqBuf); err != nil {
			f.Close()
			return runFile{}, err
		}
		if err := writeVaryRecord(w, encoded[i]); err != nil {
			f.Close()
			return runFile{}, err
		}
	}
	if err := w.Close(); err != nil {
		return runFile{}, err
	}
	return runFile{path: path, compressed: compress}, nil
}

func mergeVary[T any](runs []runFile, outPath string, codec VaryCodec[T], compare CompareFunc[T], post PostFunc[T]) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	ow := bufio.NewWriterSize(out, 256*1024)

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
		next := func() (taggedRecord[T], bool, error) {
			var seqBuf [8]byte
			if _, err := io.ReadFull(br, seqBuf[:]); err != nil {
				if err == io.EOF {
					var zero taggedRecord[T]
					return zero, false, nil
				}
				var zero taggedRecord[T]
				return zero, false, err
			}
			payload, ok, err := readVaryRecord(br)
			if err != nil || !ok {
				var zero taggedRecord[T]
				return zero, false, err
			}
			seq := int64(binary.LittleEndian.Uint64(seqBuf[:]))
			rec := codec.Decode(payload)
			return taggedRecord[T]{seq: seq, rec: rec}, true, nil
		}
		sources = append(sources, &mergeSource[T]{next: next})
	}

	var outIndex int64
	err = mergeAll(sources, compare, func(tr taggedRecord[T]) error {
		rec := tr.rec
		keep := true
		if post != nil {
			keep = post(&rec, outIndex)
		}
		if !keep {
			return nil
		}
		if err := writeVaryRecord(ow, codec.Encode(rec)); err != nil {
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
