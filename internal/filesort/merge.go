package filesort

import (
	"container/heap"
	"fmt"
)

// runNext streams the next tagged record from one spilled run file.
// Only the current head is buffered in memory per run — the merge
// holds open one such stream per run, not the run's full contents.
type runNext[T any] func() (taggedRecord[T], bool, error)

type mergeSource[T any] struct {
	next    runNext[T]
	head    taggedRecord[T]
	hasHead bool
}

func (s *mergeSource[T]) fill() error {
	if s.hasHead {
		return nil
	}
	tr, ok, err := s.next()
	if err != nil {
		return err
	}
	if ok {
		s.head = tr
		s.hasHead = true
	}
	return nil
}

// mergeHeap is a container/heap over the current head of each run,
// ordered by Compare then preserveOrder (FILESORT_PRESERVE_ORDER).
type mergeHeap[T any] struct {
	sources []*mergeSource[T]
	compare CompareFunc[T]
}

func (h *mergeHeap[T]) Len() int { return len(h.sources) }
func (h *mergeHeap[T]) Less(i, j int) bool {
	a, b := h.sources[i].head, h.sources[j].head
	if c := h.compare(a.rec, b.rec); c != 0 {
		return c < 0
	}
	return preserveOrder(a, b) < 0
}
func (h *mergeHeap[T]) Swap(i, j int) { h.sources[i], h.sources[j] = h.sources[j], h.sources[i] }
func (h *mergeHeap[T]) Push(x any)    { h.sources = append(h.sources, x.(*mergeSource[T])) }
func (h *mergeHeap[T]) Pop() any {
	old := h.sources
	n := len(old)
	item := old[n-1]
	h.sources = old[:n-1]
	return item
}

// mergeAll drains every source in stable sorted order, calling emit
// for each surviving record.
func mergeAll[T any](sources []*mergeSource[T], compare CompareFunc[T], emit func(taggedRecord[T]) error) error {
	h := &mergeHeap[T]{compare: compare}
	for _, s := range sources {
		if err := s.fill(); err != nil {
			return fmt.Errorf("filesort: merge fill: %w", err)
		}
		if s.hasHead {
			h.sources = append(h.sources, s)
		}
	}
	heap.Init(h)

	for h.Len() > 0 {
		s := h.sources[0]
		rec := s.head
		if err := emit(rec); err != nil {
			return err
		}
		s.hasHead = false
		if err := s.fill(); err != nil {
			return fmt.Errorf("filesort: merge fill: %w", err)
		}
		if s.hasHead {
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
		}
	}
	return nil
}
