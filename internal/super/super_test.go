package super

import (
	"testing"

	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/filesort"
)

func buildNodes(t *testing.T, dir string, n int) *entities.NodesX {
	t.Helper()
	nodes, err := entities.NewNodesX(dir, true)
	if err != nil {
		t.Fatalf("NewNodesX: %v", err)
	}
	for i := 0; i < n; i++ {
		if err := nodes.Append(entities.NodeX{ID: uint64(i), Allow: entities.AllTransports}); err != nil {
			t.Fatalf("Append node: %v", err)
		}
	}
	if err := nodes.Sort(entities.CompareByID, nil, nil, filesort.Options{}); err != nil {
		t.Fatalf("Sort nodes: %v", err)
	}
	return nodes
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

func setFlag(t *testing.T, nodes *entities.NodesX, n uint32, f entities.NodeFlag) {
	t.Helper()
	nd, err := nodes.Lookup(n, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := nodes.PutBack(n, nd.SetFlag(f), 0); err != nil {
		t.Fatalf("PutBack: %v", err)
	}
}

// TestChooseSuperNodesTurnRestrict verifies the turn-restriction flag
// criterion alone marks a node super.
func TestChooseSuperNodesTurnRestrict(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 2)
	setFlag(t, nodes, 0, entities.NodeTurnRestrict)
	ways := buildWays(t, dir, map[uint64]entities.Way{0: {Type: entities.WayResidential, Allow: entities.AllTransports}})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
	}

	marked, err := ChooseSuperNodes(nodes, segs, ways)
	if err != nil {
		t.Fatalf("ChooseSuperNodes: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
	nd, err := nodes.Lookup(0, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !nd.HasFlag(entities.NodeSuper) {
		t.Errorf("node 0 not marked NodeSuper")
	}
}

// TestChooseSuperNodesSingleSegmentNotSuper matches E1: two nodes
// joined by one segment, weight sum 1 on every transport — neither
// side qualifies as super.
func TestChooseSuperNodesSingleSegmentNotSuper(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 2)
	ways := buildWays(t, dir, map[uint64]entities.Way{0: {Type: entities.WayResidential, Allow: entities.AllTransports}})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
	}

	marked, err := ChooseSuperNodes(nodes, segs, ways)
	if err != nil {
		t.Fatalf("ChooseSuperNodes: %v", err)
	}
	if marked != 0 {
		t.Fatalf("marked = %d, want 0", marked)
	}
}

// TestChooseSuperNodesWeightSumExceeded: node 0 has three incident
// segments (one a self-loop, weighted 2), pushing the motorcar weight
// sum to 4 — over the threshold of 2.
func TestChooseSuperNodesWeightSumExceeded(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 3)
	ways := buildWays(t, dir, map[uint64]entities.Way{0: {Type: entities.WayResidential, Allow: entities.AllTransports}})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 0, Way: 0, Distance: entities.MakeDistance(50, 0)},
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
		{Node1: 0, Node2: 2, Way: 0, Distance: entities.MakeDistance(100, 0)},
	}

	marked, err := ChooseSuperNodes(nodes, segs, ways)
	if err != nil {
		t.Fatalf("ChooseSuperNodes: %v", err)
	}
	if marked == 0 {
		t.Fatalf("marked = 0, want at least node 0 marked")
	}
	nd, err := nodes.Lookup(0, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !nd.HasFlag(entities.NodeSuper) {
		t.Errorf("node 0 not marked NodeSuper despite weight sum 4")
	}
}

// TestChooseSuperNodesDifferingWayClass: node 1 joins a residential
// and a track way, both allowing motorcar — the mixed-class-with-
// overlap criterion fires.
func TestChooseSuperNodesDifferingWayClass(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 3)
	ways := buildWays(t, dir, map[uint64]entities.Way{
		0: {Type: entities.WayResidential, Allow: entities.AllTransports},
		1: {Type: entities.WayTrack, Allow: entities.AllTransports},
	})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
		{Node1: 1, Node2: 2, Way: 1, Distance: entities.MakeDistance(100, 0)},
	}

	marked, err := ChooseSuperNodes(nodes, segs, ways)
	if err != nil {
		t.Fatalf("ChooseSuperNodes: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}
	nd, err := nodes.Lookup(1, 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !nd.HasFlag(entities.NodeSuper) {
		t.Errorf("node 1 not marked NodeSuper despite differing incident way classes")
	}
}

// TestCreateSuperSegmentsChain: nodes 0 and 3 are super, 1 and 2 are
// plain waypoints between them on one way class; CreateSuperSegments
// must emit a single (0,3) super-segment summing the chain's length.
func TestCreateSuperSegmentsChain(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 4)
	setFlag(t, nodes, 0, entities.NodeSuper)
	setFlag(t, nodes, 3, entities.NodeSuper)
	ways := buildWays(t, dir, map[uint64]entities.Way{0: {Type: entities.WayResidential, Allow: entities.AllTransports}})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
		{Node1: 1, Node2: 2, Way: 0, Distance: entities.MakeDistance(100, 0)},
		{Node1: 2, Node2: 3, Way: 0, Distance: entities.MakeDistance(100, 0)},
	}

	out, err := CreateSuperSegments(nodes, segs, ways)
	if err != nil {
		t.Fatalf("CreateSuperSegments: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (one emission per direction)", len(out))
	}
	for _, s := range out {
		if entities.SegLength(s.Distance) != 300 {
			t.Errorf("super-segment length = %d, want 300", entities.SegLength(s.Distance))
		}
		if entities.SegFlags(s.Distance)&entities.FlagSegSuper == 0 {
			t.Errorf("super-segment missing FlagSegSuper")
		}
		if (s.Node1 != 0 || s.Node2 != 3) && (s.Node1 != 3 || s.Node2 != 0) {
			t.Errorf("super-segment endpoints = (%d,%d), want 0 and 3 involved", s.Node1, s.Node2)
		}
	}
}

// TestCreateSuperSegmentsStopsAtWayClassBoundary verifies a change in
// way class partway along the chain prevents the search from crossing
// it: no super-segment reaches past the boundary node.
func TestCreateSuperSegmentsStopsAtWayClassBoundary(t *testing.T) {
	dir := t.TempDir()
	nodes := buildNodes(t, dir, 4)
	setFlag(t, nodes, 0, entities.NodeSuper)
	setFlag(t, nodes, 3, entities.NodeSuper)
	ways := buildWays(t, dir, map[uint64]entities.Way{
		0: {Type: entities.WayResidential, Allow: entities.AllTransports},
		1: {Type: entities.WayTrack, Allow: entities.AllTransports},
	})

	segs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Way: 0, Distance: entities.MakeDistance(100, 0)},
		{Node1: 1, Node2: 2, Way: 1, Distance: entities.MakeDistance(100, 0)},
		{Node1: 2, Node2: 3, Way: 1, Distance: entities.MakeDistance(100, 0)},
	}

	out, err := CreateSuperSegments(nodes, segs, ways)
	if err != nil {
		t.Fatalf("CreateSuperSegments: %v", err)
	}
	for _, s := range out {
		if (s.Node1 == 0 && s.Node2 == 3) || (s.Node1 == 3 && s.Node2 == 0) {
			t.Errorf("super-segment crossed a way-class boundary: %+v", s)
		}
	}
}

func TestMergeSuperSegments(t *testing.T) {
	normal := []entities.SegmentX{
		{Node1: 0, Node2: 1, Distance: entities.MakeDistance(100, 0)},
		{Node1: 2, Node2: 3, Distance: entities.MakeDistance(50, 0)},
	}
	superSegs := []entities.SegmentX{
		{Node1: 0, Node2: 1, Distance: entities.MakeDistance(100, 0)},
		{Node1: 4, Node2: 5, Distance: entities.MakeDistance(300, 0)},
	}

	out := MergeSuperSegments(normal, superSegs)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}

	matched := out[0]
	if matched.Node1 != 0 || matched.Node2 != 1 {
		t.Fatalf("out[0] = %+v, want (0,1)", matched)
	}
	if flags := entities.SegFlags(matched.Distance); flags&entities.FlagSegNormal == 0 || flags&entities.FlagSegSuper == 0 {
		t.Errorf("matched segment missing both flags: %x", flags)
	}

	normalOnly := out[1]
	if normalOnly.Node1 != 2 || normalOnly.Node2 != 3 {
		t.Fatalf("out[1] = %+v, want (2,3)", normalOnly)
	}
	if flags := entities.SegFlags(normalOnly.Distance); flags&entities.FlagSegNormal == 0 || flags&entities.FlagSegSuper != 0 {
		t.Errorf("normal-only segment flags wrong: %x", flags)
	}

	superOnly := out[2]
	if superOnly.Node1 != 4 || superOnly.Node2 != 5 {
		t.Fatalf("out[2] = %+v, want (4,5)", superOnly)
	}
	if flags := entities.SegFlags(superOnly.Distance); flags&entities.FlagSegSuper == 0 || flags&entities.FlagSegNormal != 0 {
		t.Errorf("super-only segment flags wrong: %x", flags)
	}
}
