// Package fixme re-indexes error-log diagnostics with a geographic
// coordinate after the main entity pipeline has sorted NodesX/WaysX
// and split ways into segments (§4.J). It runs at the end of
// Pipeline.Run, over the stores the core itself built; this module
// has no separate fixme program.
package fixme

import "math"

// EntityKind identifies which OSM entity class a Reference points at.
type EntityKind int

const (
	RefNode EntityKind = iota
	RefWay
	RefRelation
)

// Reference is one OSM entity a diagnostic names, by its original id
// (never a post-sort index — the diagnostic was logged before, or
// independent of, renumbering).
type Reference struct {
	Kind EntityKind
	ID   uint64
}

// Entry is one diagnostic awaiting a coordinate: its location in the
// text log plus the entities it refers to. This is richer than
// diag.Diagnostic's single Entity/OriginalID pair — a diagnostic can
// name several members (e.g. a dropped turn restriction references
// its via node and both ways) — so the fixme companion file
// carries its own Entry shape rather than reusing diag.Diagnostic
// directly.
type Entry struct {
	Offset int64
	Length int
	Refs   []Reference
}

// NoLatLong is the sentinel coordinate for diagnostics Reindex could
// not place (every reference failed to resolve), matching the
// "NO_LATLONG-valued records" trailing section.
const NoLatLong = int32(math.MinInt32)

// ErrorLogX is the final diagnostic record: { offset, length, lat,
// lon } per §4.J, with HasCoord false for the NO_LATLONG section.
type ErrorLogX struct {
	Offset   int64
	Length   uint32
	Lat      int32
	Lon      int32
	HasCoord bool
}

const errorLogXSize = 8 + 4 + 4 + 4
