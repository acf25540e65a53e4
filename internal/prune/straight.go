package prune

import "github.com/ogrid/graphcore/internal/entities"

// Straight implements the first pruning pass (§4.G.1): a node with
// exactly two incident segments belonging to the same way class,
// whose perpendicular offset from the line through its two neighbours
// is within toleranceM, is redundant geometry — it is marked
// NodePruned and its two segments replaced by one spanning the
// neighbours directly.
//
// The adjacency built at the top is not rebuilt as merges happen
// within the same call, so a segment already rewritten or killed by
// an earlier merge in this pass is never reused by a later one
// (tracked via touched[]): a run of three or more collinear nodes
// collapses partially per call rather than all at once. Calling
// Straight again on the result collapses the remainder; Run invokes
// it once per §4.G's "three passes in order" framing.
func Straight(nodes *entities.NodesX, segs []entities.SegmentX, ways *entities.WaysX, numNodes int, toleranceM float64) (int, []entities.SegmentX, error) {
	adj := adjacencyFor(segs, numNodes)
	touched := make([]bool, len(segs))
	removed := 0

	for n := uint32(0); n < uint32(numNodes); n++ {
		nd, err := nodes.Lookup(n, 6)
		if err != nil {
			return 0, nil, err
		}
		if nd.HasFlag(entities.NodePruned) || nd.HasFlag(entities.NodeTurnRestrict) || nd.HasFlag(entities.NodeTurnRestrict2) {
			continue
		}

		var incident []uint32
		eligible := true
		adj.Walk(n, func(segIdx uint32, seg entities.SegmentX) bool {
			if seg.Node1 == entities.NoIndex || touched[segIdx] {
				eligible = false
				return false
			}
			incident = append(incident, segIdx)
			return true
		})
		if !eligible || len(incident) != 2 {
			continue
		}

		i0, i1 := incident[0], incident[1]
		s0, s1 := segs[i0], segs[i1]
		if s0.Node1 == s0.Node2 || s1.Node1 == s1.Node2 {
			continue
		}

		way0, err := ways.Lookup(s0.Way, 1)
		if err != nil {
			return 0, nil, err
		}
		way1, err := ways.Lookup(s1.Way, 2)
		if err != nil {
			return 0, nil, err
		}
		if !entities.SameClass(way0.Way, way1.Way) {
			continue
		}

		neighbour0, neighbour1 := otherNode(s0, n), otherNode(s1, n)
		if neighbour0 == neighbour1 {
			continue
		}

		nLat, nLon, err := nodeLatLon(nodes, n)
		if err != nil {
			return 0, nil, err
		}
		lat0, lon0, err := nodeLatLon(nodes, neighbour0)
		if err != nil {
			return 0, nil, err
		}
		lat1, lon1, err := nodeLatLon(nodes, neighbour1)
		if err != nil {
			return 0, nil, err
		}
		if crossTrackMetres(lat0, lon0, lat1, lon1, nLat, nLon) > toleranceM {
			continue
		}

		merged, ok := mergeStraight(s0, s1, n, neighbour0, neighbour1)
		if !ok {
			continue
		}

		segs[i0] = merged
		segs[i1].Node1 = entities.NoIndex
		touched[i0], touched[i1] = true, true

		if err := nodes.PutBack(n, nd.SetFlag(entities.NodePruned), 6); err != nil {
			return 0, nil, err
		}
		removed++
	}

	return removed, segs, nil
}

// mergeStraight combines s0 (neighbour0 .. n) and s1 (n .. neighbour1)
// into one segment spanning neighbour0..neighbour1: distances sum,
// one-way permission in each direction requires both legs to permit
// it, and a leg's INCLINEUP bit in a given direction carries through
// if either leg climbs in that direction.
func mergeStraight(s0, s1 entities.SegmentX, n, neighbour0, neighbour1 uint32) (entities.SegmentX, bool) {
	allowFwd0, allowBack0, upFwd0, upBack0 := segTravel(s0, neighbour0) // neighbour0 -> n
	allowFwd1, allowBack1, upFwd1, upBack1 := segTravel(s1, n)         // n -> neighbour1

	len0, len1 := entities.SegLength(s0.Distance), entities.SegLength(s1.Distance)
	total := uint64(len0) + uint64(len1)
	if total > uint64(entities.DistLengthMask) {
		return entities.SegmentX{}, false
	}

	var flags uint32
	if !(allowFwd0 && allowFwd1) {
		flags |= entities.FlagOneway2to1 // neighbour0 -> neighbour1 blocked
	}
	if !(allowBack0 && allowBack1) {
		flags |= entities.FlagOneway1to2 // neighbour1 -> neighbour0 blocked
	}
	if upFwd0 || upFwd1 {
		flags |= entities.FlagInclineUp1to2
	}
	if upBack0 || upBack1 {
		flags |= entities.FlagInclineUp2to1
	}

	merged := entities.SegmentX{
		Node1:    neighbour0,
		Node2:    neighbour1,
		Next2:    entities.NoIndex,
		Way:      s0.Way,
		Distance: entities.MakeDistance(uint32(total), flags),
	}
	return entities.NormalizeSegment(merged), true
}
