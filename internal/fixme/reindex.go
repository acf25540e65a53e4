package fixme

import "github.com/ogrid/graphcore/internal/writer"

// Reindex assigns a coordinate to each entry (via resolver.Coordinate,
// seeded by the entry's position for determinism), then sorts the
// entries that resolved a coordinate geographically (the same
// (lonbin, latbin, lon, lat) key §4.I uses for nodes), appending the
// entries that resolved none as the NO_LATLONG trailing section.
func Reindex(entries []Entry, resolver *Resolver) ([]ErrorLogX, writer.GeoIndex) {
	placed := make([]ErrorLogX, 0, len(entries))
	unplaced := make([]ErrorLogX, 0)

	for i, e := range entries {
		c, ok := resolver.Coordinate(int64(i), e.Refs)
		rec := ErrorLogX{Offset: e.Offset, Length: uint32(e.Length)}
		if ok {
			rec.Lat, rec.Lon, rec.HasCoord = c.Lat, c.Lon, true
			placed = append(placed, rec)
		} else {
			rec.Lat, rec.Lon = NoLatLong, NoLatLong
			unplaced = append(unplaced, rec)
		}
	}

	coords := make([]writer.Coord, len(placed))
	for i, rec := range placed {
		coords[i] = writer.Coord{Lat: rec.Lat, Lon: rec.Lon}
	}
	geo := writer.NewGeoIndex(coords)
	order := geo.SortOrder(coords)

	sorted := make([]ErrorLogX, 0, len(entries))
	for _, idx := range order {
		sorted = append(sorted, placed[idx])
	}
	sorted = append(sorted, unplaced...)
	return sorted, geo
}
