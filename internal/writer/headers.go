package writer

import "encoding/binary"

// NodesHeader is nodes.mem's fixed header (§6).
type NodesHeader struct {
	Count       uint32
	SuperCount  uint32
	NormalCount uint32
	LatBins     uint32
	LonBins     uint32
	LatZero     int32
	LonZero     int32
}

const nodesHeaderSize = 4*5 + 4 + 4

func (h NodesHeader) encode() []byte {
	buf := make([]byte, nodesHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	binary.LittleEndian.PutUint32(buf[4:8], h.SuperCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.NormalCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.LatBins)
	binary.LittleEndian.PutUint32(buf[16:20], h.LonBins)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.LatZero))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.LonZero))
	return buf
}

// SegmentsHeader is segments.mem's fixed header.
type SegmentsHeader struct {
	Count       uint32
	SuperCount  uint32
	NormalCount uint32
}

const segmentsHeaderSize = 4 * 3

func (h SegmentsHeader) encode() []byte {
	buf := make([]byte, segmentsHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	binary.LittleEndian.PutUint32(buf[4:8], h.SuperCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.NormalCount)
	return buf
}

// WaysHeader is ways.mem's fixed header. HighwayUnion is the
// bitwise-OR of (1<<Way.Type) across every way, so a reader can
// cheaply ask "does this file contain any motorway" without a scan.
type WaysHeader struct {
	Count        uint32
	HighwayUnion uint32
	AllowUnion   uint8
	PropsUnion   uint16
}

const waysHeaderSize = 4 + 4 + 1 + 2

func (h WaysHeader) encode() []byte {
	buf := make([]byte, waysHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	binary.LittleEndian.PutUint32(buf[4:8], h.HighwayUnion)
	buf[8] = h.AllowUnion
	binary.LittleEndian.PutUint16(buf[9:11], h.PropsUnion)
	return buf
}

// RelationsHeader is relations.mem's fixed header.
type RelationsHeader struct {
	Count uint32
}

const relationsHeaderSize = 4

func (h RelationsHeader) encode() []byte {
	buf := make([]byte, relationsHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	return buf
}

// FinalNode is the packed on-disk node record: per-bin-relative
// coordinate offsets plus the adjacency head and flags.
type FinalNode struct {
	LatOff   int16
	LonOff   int16
	FirstSeg uint32
	Allow    uint8
	Flags    uint8
}

const finalNodeSize = 2 + 2 + 4 + 1 + 1

func (r FinalNode) encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(r.LatOff))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(r.LonOff))
	binary.LittleEndian.PutUint32(buf[4:8], r.FirstSeg)
	buf[8] = r.Allow
	buf[9] = r.Flags
}

// TurnRelation is the packed on-disk turn-relation record: from/to
// are segment indexes incident to via (§4.I).
type TurnRelation struct {
	From   uint32
	Via    uint32
	To     uint32
	Except uint8
}

const turnRelationSize = 4 + 4 + 4 + 1

func (r TurnRelation) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.From)
	binary.LittleEndian.PutUint32(buf[4:8], r.Via)
	binary.LittleEndian.PutUint32(buf[8:12], r.To)
	buf[12] = r.Except
}
