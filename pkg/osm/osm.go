// Package osm defines the parser-facing callback surface consumed by
// the graph-construction core, and the degree↔fixed-point coordinate
// conversion shared by every component that touches a coordinate.
// Parsers themselves (XML/PBF/O5M decoding, tag-rule evaluation) are
// out of scope (§1); this package is the seam between them and the
// pipeline.
package osm

import "math"

// CoordScale converts a coordinate in degrees to the fixed-point int32
// representation stored in NodeX (and read back out of it): one unit
// is one millionth of a degree, giving roughly 11 cm of precision at
// the equator — ample for routing-grade geometry.
const CoordScale = 1_000_000

// ToFixed converts a degree value (already validated to be within
// ±180) to its stored fixed-point form.
func ToFixed(degrees float64) int32 {
	return int32(math.Round(degrees * CoordScale))
}

// ToDegrees converts a stored fixed-point coordinate back to degrees.
func ToDegrees(fixed int32) float64 {
	return float64(fixed) / CoordScale
}

// WayTags is the tag-derived attribute bundle a parser hands to
// AppendWay, mirrored onto entities.Way after the core resolves
// enum/bitset values from raw tag strings (a concern of the
// tag-rule parser, out of scope here).
type WayTags struct {
	Name    string
	Type    uint8
	Allow   uint8
	Props   uint16
	Speed   uint8
	Weight  uint16
	Height  uint16
	Width   uint16
	Length  uint8
	Incline int8
}

// RelationKind distinguishes a route relation from a turn-restriction
// relation, the two relation shapes AppendRelation accepts.
type RelationKind int

const (
	RelationRoute RelationKind = iota
	RelationTurnRestriction
)

// Members lists a relation's constituent entities by OSM id.
type Members struct {
	Nodes     []uint64
	Ways      []uint64
	Relations []uint64
}

// RelationData carries the kind-specific payload of a relation: for a
// route relation, the transports bitset it declares; for a turn
// restriction, the from/via/to way-or-node references and the
// restriction code.
type RelationData struct {
	Kind RelationKind

	// Route relation fields.
	Routes uint8

	// Turn restriction fields.
	From        uint64
	Via         uint64
	To          uint64
	Restriction uint8
	Except      uint8
}

// Sink is the three-operation callback surface a parser drives the
// core with (§6): append_node/append_way/append_relation. The core
// implements Sink; it never reaches into a parser's internals.
type Sink interface {
	AppendNode(id uint64, lat, lon float64, allow uint8) error
	AppendWay(id uint64, tags WayTags, nodes []uint64) error
	AppendRelation(id uint64, data RelationData, members Members) error
}
