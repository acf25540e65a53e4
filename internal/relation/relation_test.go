package relation

import (
	"bytes"
	"testing"

	"go.uber.org/zap"

	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/filesort"
	"github.com/ogrid/graphcore/internal/segment"
)

func newSink() *diag.Sink {
	return diag.NewSink(zap.NewNop(), &bytes.Buffer{})
}

func buildWays(t *testing.T, dir string, ways map[uint64]entities.Way) *entities.WaysX {
	t.Helper()
	w, err := entities.NewWaysX(dir, true)
	if err != nil {
		t.Fatalf("NewWaysX: %v", err)
	}
	for id, way := range ways {
		if err := w.Append(entities.WayX{ID: id, Way: way}); err != nil {
			t.Fatalf("Append way: %v", err)
		}
	}
	if err := w.Sort(entities.CompareWayXByID, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort ways: %v", err)
	}
	return w
}

func buildNodes(t *testing.T, dir string, ids []uint64) *entities.NodesX {
	t.Helper()
	n, err := entities.NewNodesX(dir, true)
	if err != nil {
		t.Fatalf("NewNodesX: %v", err)
	}
	for _, id := range ids {
		if err := n.Append(entities.NodeX{ID: id, Allow: entities.AllTransports}); err != nil {
			t.Fatalf("Append node: %v", err)
		}
	}
	if err := n.Sort(entities.CompareByID, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort nodes: %v", err)
	}
	return n
}

// TestPropagateRoutesOverridesForbiddenWay is boundary scenario E5:
// a bicycle-only way is a member of a Foot route relation; the
// relation wins, the way's allow gets Foot added and FootRoute is set
// in its props, with one warning logged.
func TestPropagateRoutesOverridesForbiddenWay(t *testing.T) {
	dir := t.TempDir()
	ways := buildWays(t, dir, map[uint64]entities.Way{10: {Type: entities.WayCycleway, Allow: entities.TransportBicycle}})

	rr, err := entities.NewRouteRelsX(dir)
	if err != nil {
		t.Fatalf("NewRouteRelsX: %v", err)
	}
	if err := rr.Append(entities.RouteRelX{ID: 1, Routes: entities.TransportFoot, Ways: []uint64{10}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := rr.Sort(entities.CompareRouteRelXByID, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	sink := newSink()
	if err := PropagateRoutes(rr, ways, sink); err != nil {
		t.Fatalf("PropagateRoutes: %v", err)
	}

	idx, _ := ways.Index(10)
	w, err := ways.Lookup(idx, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if w.Way.Allow&entities.TransportFoot == 0 {
		t.Errorf("way.Allow does not include Foot: %v", w.Way.Allow)
	}
	if w.Way.Props&entities.PropFootRoute == 0 {
		t.Errorf("way.Props missing FootRoute")
	}
	warnings, _ := sink.Counts()
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
}

// TestPropagateRoutesFixpointThroughChildRelation verifies that a
// parent relation's routes reach a child relation's ways only after
// the delta is detected and propagated in a later pass.
func TestPropagateRoutesFixpointThroughChildRelation(t *testing.T) {
	dir := t.TempDir()
	ways := buildWays(t, dir, map[uint64]entities.Way{
		20: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
		21: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
	})

	rr, err := entities.NewRouteRelsX(dir)
	if err != nil {
		t.Fatalf("NewRouteRelsX: %v", err)
	}
	if err := rr.Append(entities.RouteRelX{ID: 100, Routes: entities.TransportBicycle, Ways: []uint64{20}, Relations: []uint64{200}}); err != nil {
		t.Fatalf("Append parent: %v", err)
	}
	if err := rr.Append(entities.RouteRelX{ID: 200, Routes: 0, Ways: []uint64{21}}); err != nil {
		t.Fatalf("Append child: %v", err)
	}
	if err := rr.Sort(entities.CompareRouteRelXByID, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	sink := newSink()
	if err := PropagateRoutes(rr, ways, sink); err != nil {
		t.Fatalf("PropagateRoutes: %v", err)
	}

	idx, _ := ways.Index(21)
	w, err := ways.Lookup(idx, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if w.Way.Allow&entities.TransportBicycle == 0 {
		t.Errorf("child way never received parent's Bicycle route: %v", w.Way.Allow)
	}
	if w.Way.Props&entities.PropBicycleRoute == 0 {
		t.Errorf("child way missing BicycleRoute prop")
	}
}

// buildAdjacency constructs an Adjacency over a three-way star: node 0
// is via, connected to node 1 (way A, the "from" road), node 2 (way
// B, the "to" road), and node 3 (way C, an alternative).
func buildAdjacency() (*segment.Adjacency, []entities.SegmentX) {
	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(10, 0)},
		{Node1: 0, Node2: 2, Way: 1, Distance: entities.MakeDistance(10, 0)},
		{Node1: 0, Node2: 3, Way: 2, Distance: entities.MakeDistance(10, 0)},
	}
	return segment.Index(segs, 4), segs
}

func TestResolveTurnsProhibitive(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, []uint64{100, 101, 102, 103})
	ways := buildWays(t, dir, map[uint64]entities.Way{
		900: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
		901: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
		902: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
	})
	adj, _ := buildAdjacency()

	raw, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX: %v", err)
	}
	if err := raw.Append(entities.TurnRelX{ID: 1, From: 900, Via: 100, To: 901, Restriction: entities.RestrictNoLeftTurn}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := raw.Sort(entities.CompareTurnRelXByVia, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	out, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX out: %v", err)
	}
	sink := newSink()
	if err := ResolveTurns(raw, nodes, ways, adj, out, sink); err != nil {
		t.Fatalf("ResolveTurns: %v", err)
	}
	if err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if out.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", out.Count())
	}

	viaIdx, _ := nodes.Index(100)
	n, err := nodes.Lookup(viaIdx, 0)
	if err != nil {
		t.Fatalf("Lookup via: %v", err)
	}
	if !n.HasFlag(entities.NodeTurnRestrict) {
		t.Errorf("via node missing NodeTurnRestrict")
	}
}

func TestResolveTurnsPrescriptiveFansOutAlternatives(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, []uint64{100, 101, 102, 103})
	ways := buildWays(t, dir, map[uint64]entities.Way{
		900: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
		901: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
		902: {Type: entities.WayResidential, Allow: entities.TransportMotorcar},
	})
	adj, _ := buildAdjacency()

	raw, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX: %v", err)
	}
	// only_straight_on from way A (node 1) via node 100 to way B (node 2):
	// the only permitted exit is node 2, so node 3 (way C) becomes a
	// forbidden alternative.
	if err := raw.Append(entities.TurnRelX{ID: 2, From: 900, Via: 100, To: 901, Restriction: entities.RestrictOnlyStraightOn}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := raw.Sort(entities.CompareTurnRelXByVia, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	out, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX out: %v", err)
	}
	sink := newSink()
	if err := ResolveTurns(raw, nodes, ways, adj, out, sink); err != nil {
		t.Fatalf("ResolveTurns: %v", err)
	}
	if err := out.Sort(entities.CompareTurnRelXByVia, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort out: %v", err)
	}
	if out.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (one forbidden alternative: node 3)", out.Count())
	}

	rec, err := out.Lookup(0, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	idx3, _ := nodes.Index(103)
	if rec.To != uint64(idx3) {
		t.Errorf("forbidden alternative To = %d, want node index %d", rec.To, idx3)
	}
	if rec.Restriction != entities.RestrictNoStraightOn {
		t.Errorf("restriction = %v, want its prohibitive form", rec.Restriction)
	}
}

func TestResolveTurnsDiscardsUnknownVia(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, []uint64{100})
	ways := buildWays(t, dir, map[uint64]entities.Way{900: {Type: entities.WayResidential, Allow: entities.TransportMotorcar}})
	adj, _ := buildAdjacency()

	raw, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX: %v", err)
	}
	if err := raw.Append(entities.TurnRelX{ID: 3, From: 900, Via: 999, To: 900, Restriction: entities.RestrictNoUTurn}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := raw.Sort(entities.CompareTurnRelXByVia, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	out, err := entities.NewTurnRelsX(dir, true)
	if err != nil {
		t.Fatalf("NewTurnRelsX out: %v", err)
	}
	sink := newSink()
	if err := ResolveTurns(raw, nodes, ways, adj, out, sink); err != nil {
		t.Fatalf("ResolveTurns: %v", err)
	}
	if err := out.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if out.Count() != 0 {
		t.Errorf("Count() = %d, want 0", out.Count())
	}
	_, dq := sink.Counts()
	if dq != 1 {
		t.Errorf("data-quality diagnostics = %d, want 1", dq)
	}
}
