package pqueue

// Heap is a binary min-heap over *Result keyed by SortBy. It is not
// built on container/heap because Insert's "update an already-queued
// entry in place, then bubble up only" path needs direct slot access
// via Result.Queued, which container/heap's interface does not
// expose; a hand-rolled heap keeps that O(log n) decrease-key path
// simple, matching the design's explicit two-branch Insert contract.
type Heap struct {
	items []*Result
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{items: make([]*Result, 0, 64)}
}

// Len reports the number of queued results.
func (h *Heap) Len() int { return len(h.items) }

// Insert pushes result if it is not already queued, or lowers its key
// and re-bubbles up if it is. Callers only ever lower SortBy (a
// cheaper path is found), never raise it, matching "only up" from the
// design.
func (h *Heap) Insert(r *Result, sortBy uint32) {
	r.SortBy = sortBy
	if r.Queued == NotQueued {
		h.items = append(h.items, r)
		r.Queued = len(h.items)
		h.bubbleUp(r.Queued - 1)
		return
	}
	h.bubbleUp(r.Queued - 1)
}

// Pop removes and returns the minimum-SortBy result, or nil if empty.
func (h *Heap) Pop() *Result {
	if len(h.items) == 0 {
		return nil
	}
	root := h.items[0]
	root.Queued = NotQueued

	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.items[0].Queued = 1
		h.bubbleDown(0)
	}
	return root
}

func (h *Heap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].Queued = i + 1
	h.items[j].Queued = j + 1
}

func (h *Heap) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].SortBy <= h.items[i].SortBy {
			break
		}
		h.swap(parent, i)
		i = parent
	}
}

func (h *Heap) bubbleDown(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.items[left].SortBy < h.items[smallest].SortBy {
			smallest = left
		}
		if right < n && h.items[right].SortBy < h.items[smallest].SortBy {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}
