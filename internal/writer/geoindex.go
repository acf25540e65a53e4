// Package writer implements the final geographic re-index and file
// layout (§4.I): nodes are re-sorted into a bin grid, segments and
// turn relations are remapped through that re-sort, and the four
// output files are emitted, each closed out with a trailing
// blake2b-128 checksum (§3.1). Only nodes.mem is laid out as
// [Header][PrefixSumIndex][Records]; segments.mem, ways.mem and
// relations.mem are [Header][Records] with no prefix-sum index.
package writer

import "sort"

// GeoIndex is the bin grid computed from a node set's bounding box:
// latzero/lonzero give the south-west corner, latbins/lonbins the
// grid dimensions. Coordinates are the pipeline's fixed-point i32
// representation (§6), not degrees.
type GeoIndex struct {
	LatZero int32
	LonZero int32
	LatBins int
	LonBins int

	latSpan int32 // (max-min)/latbins, at least 1
	lonSpan int32
}

// defaultBinTarget is the average number of nodes per bin the grid
// works out to: NewGeoIndex gives each axis ceil(sqrt(n)) bins, so n
// nodes share about n cells.
const defaultBinTarget = 1

// NewGeoIndex computes a GeoIndex from a node coordinate set. n is
// used to scale the grid; an empty set yields a single 1x1 bin.
func NewGeoIndex(coords []Coord) GeoIndex {
	if len(coords) == 0 {
		return GeoIndex{LatBins: 1, LonBins: 1, latSpan: 1, lonSpan: 1}
	}
	minLat, maxLat := coords[0].Lat, coords[0].Lat
	minLon, maxLon := coords[0].Lon, coords[0].Lon
	for _, c := range coords[1:] {
		if c.Lat < minLat {
			minLat = c.Lat
		}
		if c.Lat > maxLat {
			maxLat = c.Lat
		}
		if c.Lon < minLon {
			minLon = c.Lon
		}
		if c.Lon > maxLon {
			maxLon = c.Lon
		}
	}

	bins := 1
	for bins*bins < len(coords) {
		bins++
	}
	if bins < 1 {
		bins = 1
	}

	g := GeoIndex{LatZero: minLat, LonZero: minLon, LatBins: bins, LonBins: bins}
	g.latSpan = span(minLat, maxLat, bins)
	g.lonSpan = span(minLon, maxLon, bins)
	return g
}

func span(lo, hi int32, bins int) int32 {
	d := hi - lo
	s := d / int32(bins)
	if s < 1 {
		s = 1
	}
	return s
}

// Coord is a fixed-point (lat, lon) pair in the pipeline's internal
// representation.
type Coord struct {
	Lat int32
	Lon int32
}

// Bin returns the (latbin, lonbin) cell containing c, clamped to the
// grid so a coordinate exactly on the north/east edge lands in the
// last bin rather than one past it.
func (g GeoIndex) Bin(c Coord) (latbin, lonbin int) {
	latbin = int((c.Lat - g.LatZero) / g.latSpan)
	lonbin = int((c.Lon - g.LonZero) / g.lonSpan)
	if latbin >= g.LatBins {
		latbin = g.LatBins - 1
	}
	if latbin < 0 {
		latbin = 0
	}
	if lonbin >= g.LonBins {
		lonbin = g.LonBins - 1
	}
	if lonbin < 0 {
		lonbin = 0
	}
	return latbin, lonbin
}

// Offset returns c's position relative to its bin's south-west
// corner, the {latoff, lonoff} pair stored in the final node record.
func (g GeoIndex) Offset(c Coord) (latoff, lonoff int16) {
	latbin, lonbin := g.Bin(c)
	latoff = int16(c.Lat - (g.LatZero + int32(latbin)*g.latSpan))
	lonoff = int16(c.Lon - (g.LonZero + int32(lonbin)*g.lonSpan))
	return latoff, lonoff
}

// FlatBin maps a (latbin, lonbin) pair to the flat bin index used by
// the prefix-sum array, consistent with the sort key (lonbin, latbin,
// lon, lat): bins for a fixed lonbin are contiguous.
func (g GeoIndex) FlatBin(latbin, lonbin int) int { return lonbin*g.LatBins + latbin }

// NumBins returns latbins*lonbins, the number of cells (the
// prefix-sum array has one more entry than this).
func (g GeoIndex) NumBins() int { return g.LatBins * g.LonBins }

// SortOrder returns a permutation of [0,len(coords)) ordering indexes
// by (lonbin, latbin, lon, lat) with a stable tie-break on the
// original index, satisfying invariant 5.
func (g GeoIndex) SortOrder(coords []Coord) []int {
	order := make([]int, len(coords))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := coords[order[i]], coords[order[j]]
		alat, alon := g.Bin(a)
		blat, blon := g.Bin(b)
		if alon != blon {
			return alon < blon
		}
		if alat != blat {
			return alat < blat
		}
		if a.Lon != b.Lon {
			return a.Lon < b.Lon
		}
		return a.Lat < b.Lat
	})
	return order
}

// PrefixSum builds the cumulative-count index array of length
// len(counts)+1 written ahead of each binned file's record section.
func PrefixSum(counts []uint32) []uint32 {
	out := make([]uint32, len(counts)+1)
	var sum uint32
	for i, c := range counts {
		out[i] = sum
		sum += c
	}
	out[len(counts)] = sum
	return out
}
