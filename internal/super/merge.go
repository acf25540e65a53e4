package super

import "github.com/ogrid/graphcore/internal/entities"

// MergeSuperSegments merge-sorts the normal and super-segment streams,
// both already sorted by (node1, node2, distance), into one stream
// where a key present in both is emitted once with
// SEGMENT_NORMAL|SEGMENT_SUPER set, and a key present in only one is
// emitted with just that stream's flag (§4.H).
func MergeSuperSegments(normal, superSegs []entities.SegmentX) []entities.SegmentX {
	out := make([]entities.SegmentX, 0, len(normal)+len(superSegs))
	i, j := 0, 0
	for i < len(normal) && j < len(superSegs) {
		a, b := normal[i], superSegs[j]
		switch cmp := entities.CompareSegmentsByNodes(a, b); {
		case cmp == 0:
			a.Distance = entities.MakeDistance(entities.SegLength(a.Distance), entities.SegFlags(a.Distance)|entities.SegFlags(b.Distance)|entities.FlagSegNormal|entities.FlagSegSuper)
			out = append(out, a)
			i++
			j++
		case cmp < 0:
			a.Distance = entities.MakeDistance(entities.SegLength(a.Distance), entities.SegFlags(a.Distance)|entities.FlagSegNormal)
			out = append(out, a)
			i++
		default:
			b.Distance = entities.MakeDistance(entities.SegLength(b.Distance), entities.SegFlags(b.Distance)|entities.FlagSegSuper)
			out = append(out, b)
			j++
		}
	}
	for ; i < len(normal); i++ {
		a := normal[i]
		a.Distance = entities.MakeDistance(entities.SegLength(a.Distance), entities.SegFlags(a.Distance)|entities.FlagSegNormal)
		out = append(out, a)
	}
	for ; j < len(superSegs); j++ {
		b := superSegs[j]
		b.Distance = entities.MakeDistance(entities.SegLength(b.Distance), entities.SegFlags(b.Distance)|entities.FlagSegSuper)
		out = append(out, b)
	}
	return out
}
