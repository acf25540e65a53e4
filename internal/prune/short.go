package prune

import "github.com/ogrid/graphcore/internal/entities"

// shortUF is a disjoint-set structure whose union rule always attaches
// the larger id's root under the smaller id's root, so find(x) yields
// the minimum node id anywhere in x's contracted class — "ties broken
// by lower node id" (§4.G.3) falls out of the union rule itself
// instead of needing a separate tie-break step.
type shortUF struct{ parent []uint32 }

func newShortUF(n int) *shortUF {
	u := &shortUF{parent: make([]uint32, n)}
	for i := range u.parent {
		u.parent[i] = uint32(i)
	}
	return u
}

func (u *shortUF) find(x uint32) uint32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *shortUF) union(a, b uint32) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// Short implements the third pruning pass (§4.G.3): every segment
// shorter than thresholdM has its endpoints contracted into one
// surviving node, the lower id. A segment either endpoint of which
// carries a turn-restriction flag is left uncontracted even if short,
// so a via node (or one of its direct neighbours) is never absorbed.
//
// Contraction is resolved via union-find rather than one rewrite at a
// time: every qualifying segment contributes a union, then every
// segment in segs (short or not) has its endpoints rewritten through
// find() in one pass. A segment whose two endpoints land in the same
// class after rewriting has been contracted to a self-loop and is
// dropped; duplicate parallel segments that contraction may produce
// are kept in the returned slice, Short does not merge them.
func Short(nodes *entities.NodesX, segs []entities.SegmentX, numNodes int, thresholdM float64) (int, []entities.SegmentX, error) {
	uf := newShortUF(numNodes)

	protected := make([]bool, numNodes)
	for n := 0; n < numNodes; n++ {
		nd, err := nodes.Lookup(uint32(n), 6)
		if err != nil {
			return 0, nil, err
		}
		protected[n] = nd.HasFlag(entities.NodeTurnRestrict) || nd.HasFlag(entities.NodeTurnRestrict2)
	}

	for _, s := range segs {
		if s.Node1 == s.Node2 || s.Node1 == entities.NoIndex {
			continue
		}
		if protected[s.Node1] || protected[s.Node2] {
			continue
		}
		if float64(entities.SegLength(s.Distance)) >= thresholdM {
			continue
		}
		uf.union(s.Node1, s.Node2)
	}

	removed := 0
	for n := uint32(0); n < uint32(numNodes); n++ {
		if uf.find(n) == n {
			continue
		}
		nd, err := nodes.Lookup(n, 6)
		if err != nil {
			return 0, nil, err
		}
		if nd.HasFlag(entities.NodePruned) {
			continue
		}
		if err := nodes.PutBack(n, nd.SetFlag(entities.NodePruned), 6); err != nil {
			return 0, nil, err
		}
		removed++
	}

	for i := range segs {
		if segs[i].Node1 == entities.NoIndex {
			continue
		}
		n1, n2 := uf.find(segs[i].Node1), uf.find(segs[i].Node2)
		if n1 == n2 {
			segs[i].Node1 = entities.NoIndex
			continue
		}
		seg := segs[i]
		seg.Node1, seg.Node2, seg.Next2 = n1, n2, entities.NoIndex
		segs[i] = entities.NormalizeSegment(seg)
	}

	return removed, segs, nil
}
