package segment

import (
	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
)

// Split implements SplitWays (§4.E): for each way's node-reference
// list, translate each referenced OSM node id to its sorted node
// index and emit one candidate segment per consecutive pair.
func Split(wayRefsPath string, ways *entities.WaysX, nodes *entities.NodesX, segs *entities.SegmentsX, sink *diag.Sink) error {
	return EachWayRefs(wayRefsPath, func(refs WayRefs) error {
		wayIdx, ok := ways.Index(refs.WayID)
		if !ok {
			// The way was dropped by SortWayList's dedup pass.
			return nil
		}
		way, err := ways.Lookup(wayIdx, 0)
		if err != nil {
			return err
		}

		baseFlags := uint32(0)
		if way.Way.Props&entities.PropOneway != 0 {
			baseFlags |= entities.FlagOneway1to2
		}
		if way.Way.Props&entities.PropArea != 0 {
			baseFlags |= entities.FlagArea
		}

		for i := 1; i < len(refs.Nodes); i++ {
			prevID, curID := refs.Nodes[i-1], refs.Nodes[i]

			if prevID == curID {
				sink.Emit(diag.Diagnostic{
					Kind: diag.DataQuality, Entity: diag.EntityWay, OriginalID: refs.WayID,
					Template: "self-loop node in way",
				})
				continue
			}

			prevIdx, okp := nodes.Index(prevID)
			curIdx, okc := nodes.Index(curID)
			if !okp || !okc {
				missing := prevID
				if okp {
					missing = curID
				}
				sink.Emit(diag.Diagnostic{
					Kind: diag.DataQuality, Entity: diag.EntityNode, OriginalID: missing,
					Template: "way references unknown node",
				})
				continue
			}

			distance := entities.MakeDistance(0, baseFlags)
			if err := entities.AppendSegmentList(segs, prevIdx, curIdx, uint32(wayIdx), distance); err != nil {
				return err
			}
		}
		return nil
	})
}
