// Package prune implements §4.G: the three ordered passes (Straight,
// Isolated, Short) that simplify the graph before super-node
// construction, plus the remap bookkeeping (RemovePrunedSegments,
// RemovePrunedTurnRelations) that retires the nodes and segments they
// mark.
//
// All three passes operate on a fully in-memory []entities.SegmentX —
// the same representation segment.Index already requires for its
// firstnode/next2 adjacency — rather than streaming, since every pass
// needs repeated random incidence walks. Each pass only *marks*
// deletions (a node's Flags gains NodePruned, a dead segment's Node1
// becomes entities.NoIndex); nothing is physically compacted until
// BuildRemap and RemovePrunedSegments/RemovePrunedTurnRelations run
// once at the end, matching the single pdata[] remap table the spec
// describes rather than three independent ones.
package prune

import (
	"math"

	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/segment"
	"github.com/ogrid/graphcore/pkg/osm"
)

// Options bundles the three pass thresholds, all in metres.
type Options struct {
	StraightToleranceM float64
	IsolatedThresholdM float64
	ShortThresholdM    float64
}

// metresPerDegree approximates the conversion at the equator; Lon is
// additionally scaled by cos(latitude) to correct for meridian
// convergence, standard practice for a local, sub-kilometre planar
// projection.
const metresPerDegree = 111320.0

// crossTrackMetres returns the perpendicular distance, in metres, from
// point p to the line through a and b, via an equirectangular
// projection local to a's latitude. Straight-pruning only ever
// compares this against tolerances on the order of a few metres, well
// within where the flat-earth approximation and the true geodesic
// cross-track distance agree.
func crossTrackMetres(aLat, aLon, bLat, bLon, pLat, pLon float64) float64 {
	lonScale := math.Cos(aLat * math.Pi / 180)
	ax, ay := aLon*metresPerDegree*lonScale, aLat*metresPerDegree
	bx, by := bLon*metresPerDegree*lonScale, bLat*metresPerDegree
	px, py := pLon*metresPerDegree*lonScale, pLat*metresPerDegree

	dx, dy := bx-ax, by-ay
	length2 := dx*dx + dy*dy
	if length2 == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	cross := dx*(py-ay) - dy*(px-ax)
	return math.Abs(cross) / math.Sqrt(length2)
}

// otherNode returns the endpoint of seg that is not n.
func otherNode(seg entities.SegmentX, n uint32) uint32 {
	if seg.Node1 == n {
		return seg.Node2
	}
	return seg.Node1
}

// nodeLatLon fetches n's coordinates in degrees.
func nodeLatLon(nodes *entities.NodesX, n uint32) (lat, lon float64, err error) {
	rec, err := nodes.Lookup(n, 6)
	if err != nil {
		return 0, 0, err
	}
	return osm.ToDegrees(rec.Lat), osm.ToDegrees(rec.Lon), nil
}

// compact drops every segment already marked deleted (Node1 ==
// NoIndex), a prerequisite before segment.Index rebuilds an adjacency
// over the result — Index uses Node1/Node2 as array subscripts, so a
// NoIndex sentinel left in place would index out of range.
func compact(segs []entities.SegmentX) []entities.SegmentX {
	out := segs[:0]
	for _, s := range segs {
		if s.Node1 != entities.NoIndex {
			out = append(out, s)
		}
	}
	return out
}

// segTravel reports, relative to travelling away from node `from`
// along seg, whether forward travel (from -> other) and backward
// travel (other -> from) are permitted, and whether each direction
// climbs (INCLINEUP).
func segTravel(seg entities.SegmentX, from uint32) (allowForward, allowBackward, inclineUpForward, inclineUpBackward bool) {
	flags := entities.SegFlags(seg.Distance)
	if seg.Node1 == from {
		return flags&entities.FlagOneway2to1 == 0,
			flags&entities.FlagOneway1to2 == 0,
			flags&entities.FlagInclineUp1to2 != 0,
			flags&entities.FlagInclineUp2to1 != 0
	}
	return flags&entities.FlagOneway1to2 == 0,
		flags&entities.FlagOneway2to1 == 0,
		flags&entities.FlagInclineUp2to1 != 0,
		flags&entities.FlagInclineUp1to2 != 0
}

// Run executes Straight, Isolated, then Short in order over segs,
// mutating nodes' flags and segs' contents in place, and returns the
// number of nodes newly marked NodePruned.
func Run(nodes *entities.NodesX, segs []entities.SegmentX, ways *entities.WaysX, opts Options) ([]entities.SegmentX, int, error) {
	numNodes := int(nodes.Count())

	nStraight, segs, err := Straight(nodes, segs, ways, numNodes, opts.StraightToleranceM)
	if err != nil {
		return nil, 0, err
	}
	segs = compact(segs)

	nIsolated, segs, err := Isolated(nodes, segs, numNodes, opts.IsolatedThresholdM)
	if err != nil {
		return nil, 0, err
	}
	segs = compact(segs)

	nShort, segs, err := Short(nodes, segs, numNodes, opts.ShortThresholdM)
	if err != nil {
		return nil, 0, err
	}
	segs = compact(segs)

	return segs, nStraight + nIsolated + nShort, nil
}

// adjacencyFor is a small indirection so every pass rebuilds its
// Adjacency the same way.
func adjacencyFor(segs []entities.SegmentX, numNodes int) *segment.Adjacency {
	return segment.Index(segs, numNodes)
}
