package entities

import (
	"testing"

	"github.com/ogrid/graphcore/internal/filesort"
)

func buildNodesX(t *testing.T, slim bool) *NodesX {
	t.Helper()
	dir := t.TempDir()
	nodes, err := NewNodesX(dir, slim)
	if err != nil {
		t.Fatalf("NewNodesX: %v", err)
	}
	ids := []uint64{500, 100, 300, 200, 400}
	for _, id := range ids {
		if err := nodes.Append(NodeX{ID: id, Lat: int32(id), Lon: int32(id) * 2}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := nodes.Sort(CompareByID, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	return nodes
}

// TestStoreIndexRoundTrip is testable property 2: Index(idata[Index(id)]) == Index(id).
func TestStoreIndexRoundTrip(t *testing.T) {
	for _, slim := range []bool{true, false} {
		nodes := buildNodesX(t, slim)
		defer nodes.Free(false)

		idx, ok := nodes.Index(300)
		if !ok {
			t.Fatalf("slim=%v: Index(300) not found", slim)
		}
		if got := nodes.OriginalID(idx); got != 300 {
			t.Fatalf("slim=%v: OriginalID(%d) = %d, want 300", slim, idx, got)
		}
		idx2, ok := nodes.Index(nodes.OriginalID(idx))
		if !ok || idx2 != idx {
			t.Fatalf("slim=%v: round trip broke: idx=%d idx2=%d", slim, idx, idx2)
		}

		if _, ok := nodes.Index(999); ok {
			t.Errorf("slim=%v: Index(999) unexpectedly found", slim)
		}
	}
}

func TestStoreSortAssignsAscendingIndexes(t *testing.T) {
	nodes := buildNodesX(t, true)
	defer nodes.Free(false)

	for i := uint32(0); i < nodes.Count(); i++ {
		rec, err := nodes.Lookup(i, 0)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", i, err)
		}
		if rec.ID != uint64(i) {
			t.Errorf("record %d has id %d after sort, want %d", i, rec.ID, i)
		}
	}
}

func TestStoreLookupPutBackRoundTrip(t *testing.T) {
	for _, slim := range []bool{true, false} {
		nodes := buildNodesX(t, slim)
		defer nodes.Free(false)

		idx, ok := nodes.Index(200)
		if !ok {
			t.Fatalf("slim=%v: Index(200) missing", slim)
		}
		rec, err := nodes.Lookup(idx, 0)
		if err != nil {
			t.Fatalf("slim=%v: Lookup: %v", slim, err)
		}
		rec = rec.SetFlag(NodeSuper)
		if err := nodes.PutBack(idx, rec, 0); err != nil {
			t.Fatalf("slim=%v: PutBack: %v", slim, err)
		}

		got, err := nodes.Lookup(idx, 1)
		if err != nil {
			t.Fatalf("slim=%v: re-Lookup: %v", slim, err)
		}
		if !got.HasFlag(NodeSuper) {
			t.Errorf("slim=%v: PutBack did not persist", slim)
		}
	}
}
