package filesort

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// strRecord is a variable-length test record: a key plus a string
// payload of arbitrary length, encoded as [4-byte key][payload bytes].
type strRecord struct {
	key     uint32
	payload string
}

type strCodec struct{}

func (strCodec) Encode(v strRecord) []byte {
	buf := make([]byte, 4+len(v.payload))
	binary.LittleEndian.PutUint32(buf[:4], v.key)
	copy(buf[4:], v.payload)
	return buf
}

func (strCodec) Decode(b []byte) strRecord {
	return strRecord{
		key:     binary.LittleEndian.Uint32(b[:4]),
		payload: string(b[4:]),
	}
}

func writeVaryFile(t *testing.T, path string, recs []strRecord) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	codec := strCodec{}
	for _, r := range recs {
		if err := writeVaryRecord(f, codec.Encode(r)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func readVaryFile(t *testing.T, path string) []strRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var out []strRecord
	br := bufio.NewReader(f)
	codec := strCodec{}
	for {
		payload, ok, err := readVaryRecord(br)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, codec.Decode(payload))
	}
	return out
}

func TestVarySortsByKeyWithVariableLengthPayloads(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, "out.bin")

	recs := []strRecord{
		{3, "ccc"},
		{1, "a"},
		{2, "bb"},
		{1, "aaaaa"},
	}
	writeVaryFile(t, in, recs)

	compare := func(a, b strRecord) int { return int(a.key) - int(b.key) }
	opts := Options{RAMBytes: 8, TempDir: dir}
	if err := Vary[strRecord](in, out, strCodec{}, nil, compare, nil, opts); err != nil {
		t.Fatalf("Vary: %v", err)
	}

	got := readVaryFile(t, out)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 (%v)", len(got), got)
	}
	if got[0].key != 1 || got[1].key != 1 || got[2].key != 2 || got[3].key != 3 {
		t.Errorf("keys not sorted: %v", got)
	}
	// Stability: the two key=1 records keep their original relative order.
	if got[0].payload != "a" || got[1].payload != "aaaaa" {
		t.Errorf("stability violated for key=1 group: %v, %v", got[0], got[1])
	}
}
