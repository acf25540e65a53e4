// Package segment implements way splitting and segment processing:
// SplitWays explodes each way's node-reference list into candidate
// segments, Process sorts and deduplicates them and computes
// great-circle lengths, and Index builds the firstnode adjacency
// table (§4.E).
package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ogrid/graphcore/internal/xio"
)

// WayRefs is one way's raw node-reference list as supplied by the
// parser, keyed by the way's original OSM id (not its post-sort
// index, since WayRefs is written before WaysX.Sort runs).
type WayRefs struct {
	WayID uint64
	Nodes []uint64
}

func encodeWayRefs(v WayRefs) []byte {
	buf := make([]byte, 8+4+8*len(v.Nodes))
	binary.LittleEndian.PutUint64(buf[0:8], v.WayID)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(v.Nodes)))
	off := 12
	for _, n := range v.Nodes {
		binary.LittleEndian.PutUint64(buf[off:], n)
		off += 8
	}
	return buf
}

func decodeWayRefs(buf []byte) WayRefs {
	id := binary.LittleEndian.Uint64(buf[0:8])
	n := binary.LittleEndian.Uint32(buf[8:12])
	nodes := make([]uint64, n)
	off := 12
	for i := range nodes {
		nodes[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	return WayRefs{WayID: id, Nodes: nodes}
}

// WayRefsWriter appends way node-reference lists in parse order. No
// sort step exists for this stream: SplitWays consumes it sequentially
// and translates each WayID to a sorted way index via WaysX.Index,
// which naturally drops entries for ways SortWayList removed as
// duplicates.
type WayRefsWriter struct {
	w    *xio.SeqWriter
	path string
}

// NewWayRefsWriter creates "waynoderefs.mem" under dir.
func NewWayRefsWriter(dir string) (*WayRefsWriter, error) {
	path := filepath.Join(dir, "waynoderefs.mem")
	w, err := xio.NewSeqWriter(path)
	if err != nil {
		return nil, err
	}
	return &WayRefsWriter{w: w, path: path}, nil
}

// Append writes one way's node list.
func (w *WayRefsWriter) Append(refs WayRefs) error {
	payload := encodeWayRefs(refs)
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := w.w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.w.Write(payload)
	return err
}

// Close flushes and closes the writer, returning the file's path for
// a later EachWayRefs.
func (w *WayRefsWriter) Close() (string, error) {
	if err := w.w.Close(); err != nil {
		return "", err
	}
	return w.path, nil
}

// EachWayRefs streams every entry of a closed WayRefsWriter's file.
func EachWayRefs(path string, fn func(WayRefs) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("segment: open way refs: %w", err)
	}
	defer f.Close()

	lenBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(f, lenBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		n := binary.LittleEndian.Uint32(lenBuf)
		payload := make([]byte, n)
		if _, err := io.ReadFull(f, payload); err != nil {
			return err
		}
		if err := fn(decodeWayRefs(payload)); err != nil {
			return err
		}
	}
}
