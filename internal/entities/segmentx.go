package entities

import "encoding/binary"

// SegmentX is the extended segment record: { node1, node2, next2, way,
// distance }, all u32 except distance's packed length+flags (§3).
type SegmentX struct {
	Node1    uint32
	Node2    uint32
	Next2    uint32
	Way      uint32
	Distance uint32
}

const segmentXSize = 20

type segmentXCodec struct{}

func (segmentXCodec) Size() int { return segmentXSize }

func (segmentXCodec) Encode(v SegmentX, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], v.Node1)
	binary.LittleEndian.PutUint32(buf[4:8], v.Node2)
	binary.LittleEndian.PutUint32(buf[8:12], v.Next2)
	binary.LittleEndian.PutUint32(buf[12:16], v.Way)
	binary.LittleEndian.PutUint32(buf[16:20], v.Distance)
}

func (segmentXCodec) Decode(buf []byte) SegmentX {
	return SegmentX{
		Node1:    binary.LittleEndian.Uint32(buf[0:4]),
		Node2:    binary.LittleEndian.Uint32(buf[4:8]),
		Next2:    binary.LittleEndian.Uint32(buf[8:12]),
		Way:      binary.LittleEndian.Uint32(buf[12:16]),
		Distance: binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// SegmentXCodec is the xio.Codec[SegmentX] instance used by SegmentsX.
var SegmentXCodec = segmentXCodec{}

// SegmentsX is the extended segment store.
type SegmentsX struct {
	*Store[SegmentX]
}

// NewSegmentsX opens a segment store under dir. Segments have no
// external OSM id of their own (idOf/reidx are identity on Way, never
// consulted by Index — SegmentsX.Sort uses a caller-supplied compare
// instead of the id-based Store.Sort path); Index/OriginalID are not
// meaningful for this store and are never called by segment/prune/super.
func NewSegmentsX(dir string, slim bool) (*SegmentsX, error) {
	s, err := New[SegmentX](dir, "segmentsx", SegmentXCodec, segmentXNoID, segmentXNoReindex, slim)
	if err != nil {
		return nil, err
	}
	return &SegmentsX{s}, nil
}

func segmentXNoID(SegmentX) uint64                  { return 0 }
func segmentXNoReindex(s SegmentX, _ uint64) SegmentX { return s }

// AppendSegmentList normalizes (node1, node2) so node1 <= node2,
// flipping the one-way flags when a swap occurs, then appends the
// resulting segment — the single write path that must preserve
// testable property 3 (segment normalization).
func AppendSegmentList(s *SegmentsX, node1, node2, way uint32, distance uint32) error {
	seg := NormalizeSegment(SegmentX{Node1: node1, Node2: node2, Next2: NoIndex, Way: way, Distance: distance})
	return s.Append(seg)
}

// NormalizeSegment enforces node1 <= node2, flipping the one-way flags
// when a swap occurs. Shared by AppendSegmentList's write path and any
// later rewrite (pdata remapping during pruning, super-segment merge)
// that can invert a segment's endpoint order.
func NormalizeSegment(seg SegmentX) SegmentX {
	if seg.Node1 <= seg.Node2 {
		return seg
	}
	seg.Node1, seg.Node2 = seg.Node2, seg.Node1
	flags := SegFlags(seg.Distance)
	oneway1to2 := flags&FlagOneway1to2 != 0
	oneway2to1 := flags&FlagOneway2to1 != 0
	inclineUp1to2 := flags&FlagInclineUp1to2 != 0
	inclineUp2to1 := flags&FlagInclineUp2to1 != 0
	flags &^= FlagOneway1to2 | FlagOneway2to1 | FlagInclineUp1to2 | FlagInclineUp2to1
	if oneway1to2 {
		flags |= FlagOneway2to1
	}
	if oneway2to1 {
		flags |= FlagOneway1to2
	}
	if inclineUp1to2 {
		flags |= FlagInclineUp2to1
	}
	if inclineUp2to1 {
		flags |= FlagInclineUp1to2
	}
	seg.Distance = MakeDistance(SegLength(seg.Distance), flags)
	return seg
}

// CompareSegmentsForProcessing orders by (node1, node2,
// distance-without-flags, flags), the key ProcessSegments sorts on
// before walking adjacent duplicates.
func CompareSegmentsForProcessing(a, b SegmentX) int {
	switch {
	case a.Node1 != b.Node1:
		return int(a.Node1) - int(b.Node1)
	case a.Node2 != b.Node2:
		return int(a.Node2) - int(b.Node2)
	}
	al, bl := SegLength(a.Distance), SegLength(b.Distance)
	if al != bl {
		if al < bl {
			return -1
		}
		return 1
	}
	af, bf := SegFlags(a.Distance), SegFlags(b.Distance)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

// CompareSegmentsByNodes orders strictly by (node1, node2, distance),
// the key used for MergeSuperSegments and the final geo re-sort of
// segments.
func CompareSegmentsByNodes(a, b SegmentX) int {
	switch {
	case a.Node1 != b.Node1:
		return int(a.Node1) - int(b.Node1)
	case a.Node2 != b.Node2:
		return int(a.Node2) - int(b.Node2)
	case a.Distance != b.Distance:
		if a.Distance < b.Distance {
			return -1
		}
		return 1
	default:
		return 0
	}
}
