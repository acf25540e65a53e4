package prune

import "github.com/ogrid/graphcore/internal/entities"

// unionFind is a standard path-compressing, union-by-rank disjoint-set
// structure, used here to find Isolated's connected components
// ignoring direction (one-way segments still connect their endpoints
// for this purpose).
type unionFind struct {
	parent []uint32
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]uint32, n), rank: make([]uint8, n)}
	for i := range u.parent {
		u.parent[i] = uint32(i)
	}
	return u
}

func (u *unionFind) find(x uint32) uint32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b uint32) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Isolated implements the second pruning pass (§4.G.2): flood-fill
// connected components over segs ignoring one-way, then drop every
// node and segment in a component whose total segment length is below
// thresholdM. A component containing a turn-restriction node (via or
// adjacent) is left alone entirely, honouring "these prevent pruning"
// (§4.F) — such a node is never merely an isolated dead-end.
func Isolated(nodes *entities.NodesX, segs []entities.SegmentX, numNodes int, thresholdM float64) (int, []entities.SegmentX, error) {
	uf := newUnionFind(numNodes)
	for _, s := range segs {
		uf.union(s.Node1, s.Node2)
	}

	totalLen := make(map[uint32]uint64, numNodes)
	for _, s := range segs {
		root := uf.find(s.Node1)
		totalLen[root] += uint64(entities.SegLength(s.Distance))
	}

	protected := make(map[uint32]bool)
	for n := uint32(0); n < uint32(numNodes); n++ {
		nd, err := nodes.Lookup(n, 6)
		if err != nil {
			return 0, nil, err
		}
		if nd.HasFlag(entities.NodeTurnRestrict) || nd.HasFlag(entities.NodeTurnRestrict2) {
			protected[uf.find(n)] = true
		}
	}

	removed := 0
	for n := uint32(0); n < uint32(numNodes); n++ {
		nd, err := nodes.Lookup(n, 6)
		if err != nil {
			return 0, nil, err
		}
		if nd.HasFlag(entities.NodePruned) {
			continue
		}
		root := uf.find(n)
		if protected[root] || float64(totalLen[root]) >= thresholdM {
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
		root := uf.find(segs[i].Node1)
		if protected[root] || float64(totalLen[root]) >= thresholdM {
			continue
		}
		segs[i].Node1 = entities.NoIndex
	}

	return removed, segs, nil
}
