package pqueue

import "testing"

func TestHeapPopsInAscendingOrder(t *testing.T) {
	h := NewHeap()
	values := []uint32{50, 10, 40, 20, 30, 5}
	results := make([]*Result, len(values))
	for i, v := range values {
		results[i] = &Result{Node: uint32(i)}
		h.Insert(results[i], v)
	}

	var got []uint32
	for h.Len() > 0 {
		r := h.Pop()
		got = append(got, r.SortBy)
		if r.Queued != NotQueued {
			t.Errorf("popped result still marked queued: %d", r.Queued)
		}
	}

	want := []uint32{5, 10, 20, 30, 40, 50}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pop order = %v, want %v", got, want)
			break
		}
	}
}

func TestHeapInsertLowersKeyInPlace(t *testing.T) {
	h := NewHeap()
	a := &Result{Node: 1}
	b := &Result{Node: 2}
	h.Insert(a, 100)
	h.Insert(b, 50)

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}

	// Lower a's key below b's; a must now be the root.
	h.Insert(a, 10)
	top := h.Pop()
	if top != a {
		t.Errorf("Pop() after re-insert = node %d, want node 1", top.Node)
	}
}

func TestHeapQueuedTracksIndex(t *testing.T) {
	h := NewHeap()
	results := make([]*Result, 5)
	for i := range results {
		results[i] = &Result{Node: uint32(i)}
		h.Insert(results[i], uint32(10-i))
	}
	for _, r := range results {
		if r.Queued == NotQueued {
			t.Errorf("node %d not marked queued", r.Node)
		}
		if h.items[r.Queued-1] != r {
			t.Errorf("Queued index %d does not point back to node %d", r.Queued, r.Node)
		}
	}
}

func TestHeapEmptyPop(t *testing.T) {
	h := NewHeap()
	if r := h.Pop(); r != nil {
		t.Errorf("Pop() on empty heap = %v, want nil", r)
	}
}
