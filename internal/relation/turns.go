package relation

import (
	"fmt"

	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/segment"
)

// VehicleTransports excludes Foot: turn restrictions bind vehicle
// traffic, not pedestrians, matching the original's "forbids all
// vehicle transports" / "allows a vehicle transport" wording, which
// only makes sense relative to some excluded non-vehicle class.
const VehicleTransports = entities.AllTransports &^ entities.TransportFoot

func allowsDirection(seg entities.SegmentX, from, to uint32) bool {
	return segment.AllowsDirection(seg, from, to)
}

func otherNode(seg entities.SegmentX, via uint32) uint32 {
	return segment.OtherNode(seg, via)
}

// ResolveTurns implements turn-restriction materialization (§4.F):
// each raw TurnRelX (from/via/to still OSM ids) is translated against
// the live node/way/segment graph, emitting resolved records into
// out — From and To become the *other node* of the matched from/to
// segments, Via becomes a node index, and a prescriptive (only_*)
// restriction fans out into one prohibitive record per forbidden
// alternative. Discards are logged and skipped, never fatal.
func ResolveTurns(raw *entities.TurnRelsX, nodes *entities.NodesX, ways *entities.WaysX, adj *segment.Adjacency, out *entities.TurnRelsX, sink *diag.Sink) error {
	for i := uint32(0); i < raw.Count(); i++ {
		t, err := raw.Lookup(i, 0)
		if err != nil {
			return err
		}
		if err := resolveOne(t, nodes, ways, adj, out, sink); err != nil {
			return err
		}
	}
	return nil
}

func wayAllowsVehicle(w entities.WayX) bool { return w.Way.Allow&VehicleTransports != 0 }

func resolveOne(t entities.TurnRelX, nodes *entities.NodesX, ways *entities.WaysX, adj *segment.Adjacency, out *entities.TurnRelsX, sink *diag.Sink) error {
	discard := func(reason string) {
		sink.Emit(diag.Diagnostic{Kind: diag.DataQuality, Entity: diag.EntityRelation, OriginalID: t.ID, Template: reason})
	}

	viaIdx, ok := nodes.Index(t.Via)
	if !ok {
		discard("turn restriction via node not found")
		return nil
	}
	fromWayIdx, ok := ways.Index(t.From)
	if !ok {
		discard("turn restriction from way not found")
		return nil
	}
	toWayIdx, ok := ways.Index(t.To)
	if !ok {
		discard("turn restriction to way not found")
		return nil
	}

	switch {
	case t.Restriction.IsProhibitive():
		return resolveProhibitive(t, nodes, ways, adj, viaIdx, fromWayIdx, toWayIdx, out, discard)
	case t.Restriction.IsPrescriptive():
		return resolvePrescriptive(t, nodes, ways, adj, viaIdx, fromWayIdx, toWayIdx, out, discard)
	default:
		return fmt.Errorf("relation: turn restriction %d: unrecognised restriction code %d", t.ID, t.Restriction)
	}
}

// resolveProhibitive mirrors the original's no_* branch exactly: both
// the from and to segments must be the unique incidence of their way
// at via, neither one-way against the turn's direction, and both ways
// must allow some vehicle transport.
func resolveProhibitive(t entities.TurnRelX, nodes *entities.NodesX, ways *entities.WaysX, adj *segment.Adjacency, via, fromWayIdx, toWayIdx uint32, out *entities.TurnRelsX, discard func(string)) error {
	var fromSeg, toSeg entities.SegmentX
	var countFrom, countTo int
	adj.Walk(via, func(_ uint32, seg entities.SegmentX) bool {
		if seg.Way == fromWayIdx {
			fromSeg = seg
			countFrom++
		}
		if seg.Way == toWayIdx {
			toSeg = seg
			countTo++
		}
		return true
	})
	if countFrom != 1 {
		discard("turn restriction via node is not at the end of the from way")
		return nil
	}
	if countTo != 1 {
		discard("turn restriction via node is not at the end of the to way")
		return nil
	}

	fromWay, err := ways.Lookup(fromWayIdx, 1)
	if err != nil {
		return err
	}
	toWay, err := ways.Lookup(toWayIdx, 2)
	if err != nil {
		return err
	}

	fromOther := otherNode(fromSeg, via)
	toOther := otherNode(toSeg, via)

	if !allowsDirection(fromSeg, fromOther, via) {
		discard("turn restriction from way is one-way away from via")
		return nil
	}
	if !allowsDirection(toSeg, via, toOther) {
		discard("turn restriction to way is one-way towards via")
		return nil
	}
	if !wayAllowsVehicle(fromWay) {
		discard("turn restriction from way does not allow vehicles")
		return nil
	}
	if !wayAllowsVehicle(toWay) {
		discard("turn restriction to way does not allow vehicles")
		return nil
	}

	if err := markViaNodes(nodes, via, adj); err != nil {
		return err
	}
	return out.Append(entities.TurnRelX{
		ID: t.ID, From: uint64(fromOther), Via: uint64(via), To: uint64(toOther),
		Restriction: t.Restriction, Except: t.Except,
	})
}

// resolvePrescriptive mirrors the original's only_* branch: it
// validates the from way exactly as the prohibitive branch does, but
// (matching the original's asymmetry) never checks the to way's
// oneway direction or vehicle allowance — the to way is the route
// being prescribed, not forbidden. Every remaining segment at via,
// other than the from/to ways themselves, that isn't one-way towards
// via and does allow a vehicle becomes a forbidden alternative,
// emitted in the restriction's prohibitive form.
func resolvePrescriptive(t entities.TurnRelX, nodes *entities.NodesX, ways *entities.WaysX, adj *segment.Adjacency, via, fromWayIdx, toWayIdx uint32, out *entities.TurnRelsX, discard func(string)) error {
	var fromSeg entities.SegmentX
	countFrom, countTo := 0, 0
	var others []uint32
	var walkErr error

	adj.Walk(via, func(_ uint32, seg entities.SegmentX) bool {
		switch seg.Way {
		case fromWayIdx:
			fromSeg = seg
			countFrom++
		case toWayIdx:
			countTo++
		default:
			altWay, err := ways.Lookup(seg.Way, 3)
			if err != nil {
				walkErr = err
				return false
			}
			altOther := otherNode(seg, via)
			if allowsDirection(seg, via, altOther) && wayAllowsVehicle(altWay) {
				others = append(others, altOther)
			}
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}
	if countFrom != 1 {
		discard("turn restriction via node is not at the end of the from way")
		return nil
	}
	if countTo != 1 {
		discard("turn restriction via node is not at the end of the to way")
		return nil
	}

	fromWay, err := ways.Lookup(fromWayIdx, 1)
	if err != nil {
		return err
	}
	fromOther := otherNode(fromSeg, via)

	if !allowsDirection(fromSeg, fromOther, via) {
		discard("turn restriction from way is one-way away from via")
		return nil
	}
	if !wayAllowsVehicle(fromWay) {
		discard("turn restriction from way does not allow vehicles")
		return nil
	}
	if len(others) == 0 {
		discard("turn restriction not needed, only allowed exit is the to way")
		return nil
	}

	if err := markViaNodes(nodes, via, adj); err != nil {
		return err
	}
	for _, altOther := range others {
		if err := out.Append(entities.TurnRelX{
			ID: t.ID, From: uint64(fromOther), Via: uint64(via), To: uint64(altOther),
			Restriction: t.Restriction.Prohibitive(), Except: t.Except,
		}); err != nil {
			return err
		}
	}
	return nil
}

// markViaNodes sets NodeTurnRestrict on via and NodeTurnRestrict2 on
// every node directly adjacent to it, protecting both from pruning
// and forcing super-node status (§4.F, §4.H).
func markViaNodes(nodes *entities.NodesX, via uint32, adj *segment.Adjacency) error {
	n, err := nodes.Lookup(via, 4)
	if err != nil {
		return err
	}
	if !n.HasFlag(entities.NodeTurnRestrict) {
		if err := nodes.PutBack(via, n.SetFlag(entities.NodeTurnRestrict), 4); err != nil {
			return err
		}
	}

	var putErr error
	adj.Walk(via, func(_ uint32, seg entities.SegmentX) bool {
		other := otherNode(seg, via)
		if other == via {
			return true
		}
		on, err := nodes.Lookup(other, 5)
		if err != nil {
			putErr = err
			return false
		}
		if !on.HasFlag(entities.NodeTurnRestrict2) {
			if err := nodes.PutBack(other, on.SetFlag(entities.NodeTurnRestrict2), 5); err != nil {
				putErr = err
				return false
			}
		}
		return true
	})
	return putErr
}
