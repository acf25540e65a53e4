package segment

import "github.com/ogrid/graphcore/internal/entities"

// Adjacency is the firstnode table built by Index: for each node n,
// Adjacency.First(n) gives the head of n's incidence chain, and
// Adjacency.Next(s, n) advances it (§4.E). It is rebuilt fresh after
// every segment-count-changing phase (pruning, super-segment merge).
type Adjacency struct {
	firstnode []uint32
	segs      []entities.SegmentX // the sorted segment array this adjacency indexes, held read-only
}

// Index implements IndexSegments: allocate firstnode[numNodes] = NONE,
// then walk segs from last to first wiring next2 and firstnode so that
// each node's chain visits every incident segment exactly once
// (invariant 3).
func Index(segs []entities.SegmentX, numNodes int) *Adjacency {
	firstnode := make([]uint32, numNodes)
	for i := range firstnode {
		firstnode[i] = entities.NoIndex
	}

	for i := len(segs) - 1; i >= 0; i-- {
		s := &segs[i]
		s.Next2 = firstnode[s.Node2]
		firstnode[s.Node1] = uint32(i)
		firstnode[s.Node2] = uint32(i)
	}

	return &Adjacency{firstnode: firstnode, segs: segs}
}

// First returns the index of the first segment incident to n, or
// NoIndex if n has none.
func (a *Adjacency) First(n uint32) uint32 { return a.firstnode[n] }

// Next advances from segment index s for node n. If s.Node1 == n, n
// is being visited through its node1-run (segments are sorted by
// Node1, so the run is contiguous): advance to s+1 if it continues
// the run, otherwise the run — and the chain — ends. Next2 is only
// followed when s.Node1 != n, i.e. n was reached as this segment's
// Node2. This split only composes into a complete traversal because
// AppendSegmentList enforces Node1 <= Node2 everywhere: every
// Node2==n occurrence therefore sorts at or before n's own node1-run,
// so the Next2 chain always threads those occurrences through to the
// run, which then finishes the walk via +1.
func (a *Adjacency) Next(s uint32, n uint32) uint32 {
	seg := a.segs[s]
	if seg.Node1 == n {
		if int(s)+1 < len(a.segs) && a.segs[s+1].Node1 == n {
			return s + 1
		}
		return entities.NoIndex
	}
	return seg.Next2
}

// Walk calls fn for every segment incident to n, in chain order,
// stopping early if fn returns false. Used to verify invariant 4
// (adjacency completeness) and by turn-restriction/super-node logic
// that must visit every edge at a node.
func (a *Adjacency) Walk(n uint32, fn func(segIndex uint32, seg entities.SegmentX) bool) {
	for s := a.First(n); s != entities.NoIndex; s = a.Next(s, n) {
		if !fn(s, a.segs[s]) {
			return
		}
	}
}
