package filesort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ogrid/graphcore/internal/xio"
)

type u32Codec struct{}

func (u32Codec) Size() int { return 4 }
func (u32Codec) Encode(v uint32, buf []byte) {
	buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func (u32Codec) Decode(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

func writeU32File(t *testing.T, path string, values []uint32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	buf := make([]byte, 4)
	for _, v := range values {
		u32Codec{}.Encode(v, buf)
		if _, err := f.Write(buf); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func readU32File(t *testing.T, path string) []uint32 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out []uint32
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, u32Codec{}.Decode(data[i:i+4]))
	}
	return out
}

func TestFixedSortsAscending(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeU32File(t, in, []uint32{5, 3, 1, 4, 1, 5, 9, 2, 6})

	compare := func(a, b uint32) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}

	opts := Options{RAMBytes: 3 * 4, TempDir: dir} // force multiple runs
	if err := Fixed[uint32](in, out, u32Codec{}, nil, compare, nil, opts); err != nil {
		t.Fatalf("Fixed: %v", err)
	}

	got := readU32File(t, out)
	want := []uint32{1, 1, 2, 3, 4, 5, 5, 6, 9}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFixedPostDedupAdjacent(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeU32File(t, in, []uint32{3, 1, 2, 1, 3, 2})

	compare := func(a, b uint32) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}

	var prev uint32
	seenFirst := false
	post := func(rec *uint32, idx int64) bool {
		if seenFirst && *rec == prev {
			return false
		}
		prev = *rec
		seenFirst = true
		return true
	}

	opts := Options{RAMBytes: 2 * 4, TempDir: dir}
	if err := Fixed[uint32](in, out, u32Codec{}, nil, compare, post, opts); err != nil {
		t.Fatalf("Fixed: %v", err)
	}

	got := readU32File(t, out)
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFixedPreDropsRecords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")
	writeU32File(t, in, []uint32{10, 20, 30, 40})

	compare := func(a, b uint32) int { return int(a) - int(b) }
	pre := func(rec *uint32, seen int64) bool {
		return *rec != 20 // drop one value
	}

	opts := Options{RAMBytes: 2 * 4, TempDir: dir}
	if err := Fixed[uint32](in, out, u32Codec{}, pre, compare, nil, opts); err != nil {
		t.Fatalf("Fixed: %v", err)
	}

	got := readU32File(t, out)
	want := []uint32{10, 30, 40}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
}

// TestFixedStability verifies Testable Property 1: records equal under
// Compare keep their original relative order after a sort that forces
// multiple runs and a merge.
func TestFixedStability(t *testing.T) {
	codec := pairCodec{}

	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")

	values := []pair{{1, 0}, {2, 1}, {1, 2}, {2, 3}, {1, 4}, {2, 5}}
	f, err := os.Create(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	buf := make([]byte, 4)
	for _, v := range values {
		codec.Encode(v, buf)
		f.Write(buf)
	}
	f.Close()

	compare := func(a, b pair) int { return int(a.key) - int(b.key) }
	opts := Options{RAMBytes: 2 * 4, TempDir: dir}
	if err := Fixed[pair](in, out, codec, nil, compare, nil, opts); err != nil {
		t.Fatalf("Fixed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	var got []pair
	for i := 0; i+4 <= len(data); i += 4 {
		got = append(got, codec.Decode(data[i:i+4]))
	}

	wantKey1Order := []uint16{0, 2, 4}
	wantKey2Order := []uint16{1, 3, 5}
	var gotKey1, gotKey2 []uint16
	for _, g := range got {
		if g.key == 1 {
			gotKey1 = append(gotKey1, g.orig)
		} else {
			gotKey2 = append(gotKey2, g.orig)
		}
	}
	for i := range wantKey1Order {
		if gotKey1[i] != wantKey1Order[i] {
			t.Errorf("key=1 orig order = %v, want %v", gotKey1, wantKey1Order)
			break
		}
	}
	for i := range wantKey2Order {
		if gotKey2[i] != wantKey2Order[i] {
			t.Errorf("key=2 orig order = %v, want %v", gotKey2, wantKey2Order)
			break
		}
	}
}

type pair struct {
	key  uint16
	orig uint16
}

type pairCodec struct{}

func (pairCodec) Size() int { return 4 }
func (pairCodec) Encode(v pair, buf []byte) {
	buf[0], buf[1] = byte(v.key), byte(v.key>>8)
	buf[2], buf[3] = byte(v.orig), byte(v.orig>>8)
}
func (pairCodec) Decode(buf []byte) pair {
	return pair{
		key:  uint16(buf[0]) | uint16(buf[1])<<8,
		orig: uint16(buf[2]) | uint16(buf[3])<<8,
	}
}

var _ = xio.DefaultWidth // keep xio imported for potential shared codec reuse in future tests
