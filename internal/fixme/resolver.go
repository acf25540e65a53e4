package fixme

import (
	"math/rand"

	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/writer"
)

const resolverSlot = 9

// Resolver looks up a coordinate for each entity a diagnostic can
// reference. Nodes resolve directly; a way resolves to the midpoint
// of one of its segments (a way's post-split segments are exactly its
// "adjacent node pairs"); a route relation resolves by picking one
// member and resolving that, recursing at most one level into a
// nested relation to avoid an unbounded walk over relations-of-
// relations.
//
// RouteRelsX (§4.F) offers no random-access lookup by id — relations
// are always walked as a stream there, since route-tag propagation
// never needs one. Rather than add an Index to a store type whose
// only other consumer never uses it, Resolver takes a pre-built
// id->RouteRelX map, built once via a single RouteRelsX.Each pass.
type Resolver struct {
	nodes     *entities.NodesX
	ways      *entities.WaysX
	waySegs   map[uint32][]entities.SegmentX
	routeRels map[uint64]entities.RouteRelX
}

// NewResolver builds a Resolver over the sorted node/way stores, the
// (already geographically re-indexed, or pre-re-index — either is a
// valid coordinate space as long as it is used consistently) segment
// array, and a map of route relations by original id.
func NewResolver(nodes *entities.NodesX, ways *entities.WaysX, segs []entities.SegmentX, routeRels map[uint64]entities.RouteRelX) *Resolver {
	waySegs := make(map[uint32][]entities.SegmentX)
	for _, s := range segs {
		waySegs[s.Way] = append(waySegs[s.Way], s)
	}
	return &Resolver{nodes: nodes, ways: ways, waySegs: waySegs, routeRels: routeRels}
}

// BuildRouteRelMap drains rels into an id->RouteRelX map, the one
// pass NewResolver's caller needs before constructing a Resolver.
func BuildRouteRelMap(rels *entities.RouteRelsX) (map[uint64]entities.RouteRelX, error) {
	m := make(map[uint64]entities.RouteRelX)
	err := rels.Each(func(rel entities.RouteRelX) error {
		m[rel.ID] = rel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Resolver) nodeCoord(idx uint32) (writer.Coord, bool) {
	nd, err := r.nodes.Lookup(idx, resolverSlot)
	if err != nil {
		return writer.Coord{}, false
	}
	return writer.Coord{Lat: nd.Lat, Lon: nd.Lon}, true
}

func (r *Resolver) resolveNode(id uint64) (writer.Coord, bool) {
	idx, ok := r.nodes.Index(id)
	if !ok {
		return writer.Coord{}, false
	}
	return r.nodeCoord(idx)
}

func (r *Resolver) resolveWay(id uint64, rnd *rand.Rand) (writer.Coord, bool) {
	idx, ok := r.ways.Index(id)
	if !ok {
		return writer.Coord{}, false
	}
	segs := r.waySegs[idx]
	if len(segs) == 0 {
		return writer.Coord{}, false
	}
	seg := segs[rnd.Intn(len(segs))]
	n1, ok1 := r.nodeCoord(seg.Node1)
	n2, ok2 := r.nodeCoord(seg.Node2)
	if !ok1 || !ok2 {
		return writer.Coord{}, false
	}
	return writer.Coord{Lat: midpoint(n1.Lat, n2.Lat), Lon: midpoint(n1.Lon, n2.Lon)}, true
}

func (r *Resolver) resolveRelation(id uint64, rnd *rand.Rand, depth int) (writer.Coord, bool) {
	rel, ok := r.routeRels[id]
	if !ok {
		return writer.Coord{}, false
	}

	var cands []Reference
	for _, n := range rel.Nodes {
		cands = append(cands, Reference{Kind: RefNode, ID: n})
	}
	for _, w := range rel.Ways {
		cands = append(cands, Reference{Kind: RefWay, ID: w})
	}
	if depth == 0 {
		for _, rr := range rel.Relations {
			cands = append(cands, Reference{Kind: RefRelation, ID: rr})
		}
	}
	if len(cands) == 0 {
		return writer.Coord{}, false
	}
	return r.resolveOne(cands[rnd.Intn(len(cands))], rnd, depth+1)
}

func (r *Resolver) resolveOne(ref Reference, rnd *rand.Rand, depth int) (writer.Coord, bool) {
	switch ref.Kind {
	case RefNode:
		return r.resolveNode(ref.ID)
	case RefWay:
		return r.resolveWay(ref.ID, rnd)
	case RefRelation:
		if depth > 1 {
			return writer.Coord{}, false
		}
		return r.resolveRelation(ref.ID, rnd, depth)
	default:
		return writer.Coord{}, false
	}
}

// Coordinate resolves refs to one coordinate, using seed to drive the
// deterministic random choices §4.J calls for ("random choice seeded
// by the diagnostic index"). A single reference resolves directly via
// its own kind's rule; multiple references group by kind (preference
// order nodes -> ways -> relations, first nonempty class) and average
// the coordinates resolved for that class's members.
func (r *Resolver) Coordinate(seed int64, refs []Reference) (writer.Coord, bool) {
	rnd := rand.New(rand.NewSource(seed))
	if len(refs) == 1 {
		return r.resolveOne(refs[0], rnd, 0)
	}

	var nodes, ways, rels []Reference
	for _, ref := range refs {
		switch ref.Kind {
		case RefNode:
			nodes = append(nodes, ref)
		case RefWay:
			ways = append(ways, ref)
		case RefRelation:
			rels = append(rels, ref)
		}
	}
	class := nodes
	if len(class) == 0 {
		class = ways
	}
	if len(class) == 0 {
		class = rels
	}
	if len(class) == 0 {
		return writer.Coord{}, false
	}

	var sumLat, sumLon int64
	var n int
	for _, ref := range class {
		c, ok := r.resolveOne(ref, rnd, 0)
		if !ok {
			continue
		}
		sumLat += int64(c.Lat)
		sumLon += int64(c.Lon)
		n++
	}
	if n == 0 {
		return writer.Coord{}, false
	}
	return writer.Coord{Lat: int32(sumLat / int64(n)), Lon: int32(sumLon / int64(n))}, true
}

func midpoint(a, b int32) int32 { return int32((int64(a) + int64(b)) / 2) }
