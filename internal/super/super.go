// Package super implements super-node selection and super-segment
// construction (§4.H): classifying which nodes are significant enough
// to anchor the skeleton graph, running a bounded per-way-class
// Dijkstra from each one to summarize the normal segments between
// super-nodes, and merging the resulting super-segments back into the
// normal stream.
package super

import (
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/segment"
)

// ChooseSuperNodes marks NodeSuper on every node satisfying any of the
// four criteria in §4.H, iterating to a fixpoint (no criterion
// inspects another node's super status, so one pass converges in
// practice; the loop bound just guards against that assumption ever
// becoming false under a future rule change). It returns the number of
// nodes newly marked.
func ChooseSuperNodes(nodes *entities.NodesX, segs []entities.SegmentX, ways *entities.WaysX) (int, error) {
	numNodes := int(nodes.Count())
	adj := segment.Index(segs, numNodes)

	marked := 0
	for pass := 0; pass < 4; pass++ {
		changed := false
		for n := uint32(0); n < uint32(numNodes); n++ {
			nd, err := nodes.Lookup(n, 7)
			if err != nil {
				return 0, err
			}
			if nd.HasFlag(entities.NodeSuper) {
				continue
			}

			isSuper, err := nodeIsSuper(nd, n, adj, ways)
			if err != nil {
				return 0, err
			}
			if !isSuper {
				continue
			}

			if err := nodes.PutBack(n, nd.SetFlag(entities.NodeSuper), 7); err != nil {
				return 0, err
			}
			marked++
			changed = true
		}
		if !changed {
			break
		}
	}
	return marked, nil
}

// nodeIsSuper evaluates the four §4.H criteria for node n against its
// incident segments.
func nodeIsSuper(nd entities.NodeX, n uint32, adj *segment.Adjacency, ways *entities.WaysX) (bool, error) {
	if nd.HasFlag(entities.NodeTurnRestrict) || nd.HasFlag(entities.NodeTurnRestrict2) {
		return true, nil
	}

	var (
		classes       []entities.Way // one representative Way per distinct class seen
		weightByBit   [8]int         // per-transport-bit incident weight sum
		walkErr       error
		foundMixed    bool
		foundRestrict bool
	)

	adj.Walk(n, func(_ uint32, seg entities.SegmentX) bool {
		w, err := ways.Lookup(seg.Way, 8)
		if err != nil {
			walkErr = err
			return false
		}

		if w.Way.Allow&^nd.Allow != 0 && nd.Allow != 0 {
			foundRestrict = true
		}

		novel := true
		for _, c := range classes {
			if entities.SameClass(c, w.Way) {
				novel = false
				break
			}
		}
		if novel {
			for _, c := range classes {
				if overlap := c.Allow & w.Way.Allow; overlap != 0 {
					foundMixed = true
				}
			}
			classes = append(classes, w.Way)
		}

		weight := 1
		if seg.Node1 == seg.Node2 {
			weight = 2
		}
		for bit := 0; bit < 8; bit++ {
			t := entities.Transport(1 << uint(bit))
			if w.Way.Allow&t != 0 {
				weightByBit[bit] += weight
			}
		}
		return true
	})
	if walkErr != nil {
		return false, walkErr
	}
	if foundRestrict || foundMixed {
		return true, nil
	}
	for _, sum := range weightByBit {
		if sum > 2 {
			return true, nil
		}
	}
	return false, nil
}
