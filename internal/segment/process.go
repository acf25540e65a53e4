package segment

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/filesort"
	"github.com/ogrid/graphcore/pkg/osm"
)

// earthRadiusM is R = 6378.137 km from §4.E, in metres.
const earthRadiusM = 6378137.0

// greatCircleMetres computes the great-circle distance between two
// points given in degrees, via
// d = 2R·asin(√(sin²(Δφ/2) + cosφ1·cosφ2·sin²(Δλ/2))).
func greatCircleMetres(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinDPhi := math.Sin(dPhi / 2)
	sinDLambda := math.Sin(dLambda / 2)
	a := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// Process implements ProcessSegments (§4.E): sort all candidate
// segments by (node1, node2, distance-without-flags, flags), resolve
// adjacent duplicates per the area-vs-non-area policy, compute each
// survivor's great-circle length, and mark each kept segment's way as
// used.
//
// The area/non-area policy needs one record of lookahead beyond what
// filesort's Post callback can express (a later record can retract an
// earlier one already decided "keep"), so this sorts with Store.Sort
// first and then runs its own buffered rewrite pass, the same
// second-pass-after-sort shape Store.Sort itself uses for reindexing.
func Process(segs *entities.SegmentsX, nodes *entities.NodesX, ways *entities.WaysX, usedWays []bool, opts filesort.Options, sink *diag.Sink) error {
	if err := segs.Sort(entities.CompareSegmentsForProcessing, nil, nil, opts); err != nil {
		return fmt.Errorf("segment.Process: sort: %w", err)
	}

	dir := filepath.Dir(segs.Path())
	outPath := filepath.Join(dir, "segmentsx.processed.mem")
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("segment.Process: create output: %w", err)
	}

	in, err := os.Open(segs.Path())
	if err != nil {
		out.Close()
		return fmt.Errorf("segment.Process: reopen sorted: %w", err)
	}

	recSize := entities.SegmentXCodec.Size()
	buf := make([]byte, recSize)

	var pending entities.SegmentX
	hasPending := false

	flush := func(seg entities.SegmentX) error {
		lengthM := 0.0
		n1, err := nodes.Lookup(seg.Node1, 2)
		if err != nil {
			return err
		}
		n2, err := nodes.Lookup(seg.Node2, 3)
		if err != nil {
			return err
		}
		lengthM = greatCircleMetres(osm.ToDegrees(n1.Lat), osm.ToDegrees(n1.Lon), osm.ToDegrees(n2.Lat), osm.ToDegrees(n2.Lon))

		flags := entities.SegFlags(seg.Distance) &^ entities.FlagArea
		seg.Distance = entities.MakeDistance(uint32(math.Round(lengthM)), flags)

		if int(seg.Way) < len(usedWays) {
			usedWays[seg.Way] = true
		}

		enc := make([]byte, recSize)
		entities.SegmentXCodec.Encode(seg, enc)
		_, err = out.Write(enc)
		return err
	}

	for {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF {
				break
			}
			in.Close()
			out.Close()
			return fmt.Errorf("segment.Process: read: %w", err)
		}
		cur := entities.SegmentXCodec.Decode(buf)

		if !hasPending {
			pending = cur
			hasPending = true
			continue
		}

		if pending.Node1 == cur.Node1 && pending.Node2 == cur.Node2 {
			pendingArea := entities.SegFlags(pending.Distance)&entities.FlagArea != 0
			curArea := entities.SegFlags(cur.Distance)&entities.FlagArea != 0

			switch {
			case pending.Way == cur.Way:
				sink.Emit(diag.Diagnostic{Kind: diag.DataQuality, Entity: diag.EntityWay, OriginalID: ways.OriginalID(cur.Way), Template: "duplicated segment, same way"})
				// keep pending, drop cur
			case !pendingArea && !curArea:
				sink.Emit(diag.Diagnostic{Kind: diag.DataQuality, Entity: diag.EntityWay, OriginalID: ways.OriginalID(cur.Way), Template: "duplicated segment, different ways"})
				// keep pending, drop cur
			case pendingArea && !curArea:
				pending = cur // non-area wins
			case !pendingArea && curArea:
				// pending (non-area) wins, drop cur
			default:
				// both areas: keep pending, drop cur
			}
			continue
		}

		if err := flush(pending); err != nil {
			in.Close()
			out.Close()
			return err
		}
		pending = cur
	}
	if hasPending {
		if err := flush(pending); err != nil {
			in.Close()
			out.Close()
			return err
		}
	}

	in.Close()
	if err := out.Close(); err != nil {
		return fmt.Errorf("segment.Process: close output: %w", err)
	}
	return segs.ReplaceFromFile(outPath)
}

// NewUsedWays returns a usedWays bitmask sized to the way store's
// count, ready to be passed into Process.
func NewUsedWays(ways *entities.WaysX) []bool {
	return make([]bool, ways.Count())
}
