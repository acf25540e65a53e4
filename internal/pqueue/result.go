// Package pqueue implements the priority queue and result hashmap pair
// used by the bounded Dijkstra search in internal/super: a binary
// min-heap keyed by score, and a chaining hashmap keyed by
// (node, segment) whose entries are allocated from a two-level pool so
// that pointers remain valid as the table grows.
package pqueue

// NotQueued is the sentinel Queued value for a Result that is not
// currently in the heap.
const NotQueued = 0

// Result is one (node, segment) search state, matching §3's Result
// record: two distinct ways through the same node yield two results,
// because Segment participates in the key.
type Result struct {
	Node    uint32
	Segment uint32
	Prev    *Result

	Score  uint32 // cumulative distance/cost so far
	SortBy uint32 // heap key; usually Score plus a lower-bound heuristic

	// Queued is 0 (NotQueued) or the 1-based index of this Result in
	// the heap's backing slice, kept in sync on every swap so Insert
	// can find and update an already-queued entry in O(log n).
	Queued int

	// HashNext chains to the next Result in the same hash bucket; -1
	// terminates the chain.
	HashNext int32

	PercentAscent  uint8
	PercentDescent uint8
}
