package super

import (
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/pqueue"
	"github.com/ogrid/graphcore/internal/segment"
)

// CreateSuperSegments runs, for every super-node and every distinct
// way class incident to it, a bounded Dijkstra restricted to that
// class, and returns one emitted super-segment per reached super-node
// (§4.H). nodes must already have NodeSuper fully resolved by
// ChooseSuperNodes.
func CreateSuperSegments(nodes *entities.NodesX, segs []entities.SegmentX, ways *entities.WaysX) ([]entities.SegmentX, error) {
	numNodes := int(nodes.Count())
	adj := segment.Index(segs, numNodes)

	var out []entities.SegmentX
	for sn := uint32(0); sn < uint32(numNodes); sn++ {
		nd, err := nodes.Lookup(sn, 7)
		if err != nil {
			return nil, err
		}
		if !nd.HasFlag(entities.NodeSuper) {
			continue
		}

		classes, err := incidentClasses(sn, adj, ways)
		if err != nil {
			return nil, err
		}
		for _, class := range classes {
			segsForClass, err := dijkstraFromSuperNode(sn, class, adj, ways, nodes, segs)
			if err != nil {
				return nil, err
			}
			out = append(out, segsForClass...)
		}
	}
	return out, nil
}

// incidentClasses returns one representative Way per distinct way
// class among the segments incident to sn.
func incidentClasses(sn uint32, adj *segment.Adjacency, ways *entities.WaysX) ([]entities.Way, error) {
	var classes []entities.Way
	var walkErr error
	adj.Walk(sn, func(_ uint32, seg entities.SegmentX) bool {
		w, err := ways.Lookup(seg.Way, 8)
		if err != nil {
			walkErr = err
			return false
		}
		for _, c := range classes {
			if entities.SameClass(c, w.Way) {
				return true
			}
		}
		classes = append(classes, w.Way)
		return true
	})
	return classes, walkErr
}

// dijkstraFromSuperNode runs one bounded, single-way-class Dijkstra
// from sn and returns one super-segment per distinct super-node
// reached (the minimum-distance one, if reached via more than one
// entering segment).
func dijkstraFromSuperNode(
	sn uint32,
	class entities.Way,
	adj *segment.Adjacency,
	ways *entities.WaysX,
	nodes *entities.NodesX,
	segs []entities.SegmentX,
) ([]entities.SegmentX, error) {
	rs := pqueue.NewResultSet(8)
	heap := pqueue.NewHeap()

	var seedWay uint32
	var walkErr error
	adj.Walk(sn, func(segIdx uint32, seg entities.SegmentX) bool {
		w, err := ways.Lookup(seg.Way, 8)
		if err != nil {
			walkErr = err
			return false
		}
		if !entities.SameClass(w.Way, class) {
			return true
		}
		if seg.Node1 == seg.Node2 {
			return true
		}
		other := segment.OtherNode(seg, sn)
		if !segment.AllowsDirection(seg, sn, other) {
			return true
		}

		r, _ := rs.GetOrCreate(sn, segIdx)
		r.Score = 0
		seedWay = seg.Way
		heap.Insert(r, 0)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	best := make(map[uint32]entities.SegmentX)
	for heap.Len() > 0 {
		cur := heap.Pop()
		node := cur.Node

		if node != sn {
			nd, err := nodes.Lookup(node, 7)
			if err != nil {
				return nil, err
			}
			if nd.HasFlag(entities.NodeSuper) {
				s := buildSuperSegment(sn, cur, segs, ways, seedWay)
				if prev, ok := best[node]; !ok || entities.SegLength(s.Distance) < entities.SegLength(prev.Distance) {
					best[node] = s
				}
				continue
			}
		}

		var expandErr error
		adj.Walk(node, func(segIdx uint32, seg entities.SegmentX) bool {
			w, err := ways.Lookup(seg.Way, 8)
			if err != nil {
				expandErr = err
				return false
			}
			if !entities.SameClass(w.Way, class) {
				return true
			}
			next := segment.OtherNode(seg, node)
			if next == node {
				return true
			}
			if !segment.AllowsDirection(seg, node, next) {
				return true
			}

			length := entities.SegLength(seg.Distance)
			score := cur.Score + length

			nr, created := rs.GetOrCreate(next, segIdx)
			if created {
				nr.Prev = cur
				nr.Score = score
				asc, desc := edgeIncline(seg, w.Way.Incline, node)
				nr.PercentAscent, nr.PercentDescent = maxU8(cur.PercentAscent, asc), maxU8(cur.PercentDescent, desc)
				heap.Insert(nr, score)
			} else if score < nr.Score {
				nr.Prev = cur
				nr.Score = score
				asc, desc := edgeIncline(seg, w.Way.Incline, node)
				nr.PercentAscent, nr.PercentDescent = maxU8(cur.PercentAscent, asc), maxU8(cur.PercentDescent, desc)
				heap.Insert(nr, score)
			}
			return true
		})
		if expandErr != nil {
			return nil, expandErr
		}
	}

	out := make([]entities.SegmentX, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	return out, nil
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

// edgeIncline reduces the way's signed incline percentage to the
// boolean INCLINEUP_1TO2/2TO1 bits the segment record can actually
// carry (see DESIGN.md: SegmentX's distance word has no room for a
// magnitude), reporting the magnitude as the ascent or descent
// contributed by traversing seg starting at node `from`.
func edgeIncline(seg entities.SegmentX, wayIncline int8, from uint32) (ascent, descent uint8) {
	flags := entities.SegFlags(seg.Distance)
	var upThis, upOther bool
	if seg.Node1 == from {
		upThis = flags&entities.FlagInclineUp1to2 != 0
		upOther = flags&entities.FlagInclineUp2to1 != 0
	} else {
		upThis = flags&entities.FlagInclineUp2to1 != 0
		upOther = flags&entities.FlagInclineUp1to2 != 0
	}

	mag := wayIncline
	if mag < 0 {
		mag = -mag
	}

	switch {
	case upThis:
		return uint8(mag), 0
	case upOther:
		return 0, uint8(mag)
	default:
		return 0, 0
	}
}

// buildSuperSegment assembles the emitted super-segment from sn to the
// Result's node, reconstructing whether the reverse direction is
// passable by walking the Prev chain back to sn.
func buildSuperSegment(sn uint32, dest *pqueue.Result, segs []entities.SegmentX, ways *entities.WaysX, wayIdx uint32) entities.SegmentX {
	var flags uint32
	if !backwardAllowed(dest, segs) {
		flags |= entities.FlagOneway1to2 // blocks travel dest -> sn once normalized as (sn, dest)
	}
	flags |= entities.FlagSegSuper
	if dest.PercentAscent > 0 {
		flags |= entities.FlagInclineUp1to2
	}
	if dest.PercentDescent > 0 {
		flags |= entities.FlagInclineUp2to1
	}

	seg := entities.SegmentX{
		Node1:    sn,
		Node2:    dest.Node,
		Next2:    entities.NoIndex,
		Way:      wayIdx,
		Distance: entities.MakeDistance(dest.Score, flags),
	}
	return entities.NormalizeSegment(seg)
}

// backwardAllowed walks dest's Prev chain back to the seed result at
// sn, checking that every traversed segment also permits travel in
// the reverse direction.
func backwardAllowed(dest *pqueue.Result, segs []entities.SegmentX) bool {
	cur := dest
	for cur.Prev != nil {
		seg := segs[cur.Segment]
		from, to := cur.Prev.Node, cur.Node
		if !segment.AllowsDirection(seg, to, from) {
			return false
		}
		cur = cur.Prev
	}
	return true
}
