package graphcore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ogrid/graphcore/config"
	"github.com/ogrid/graphcore/internal/xio"
	"github.com/ogrid/graphcore/pkg/osm"
)

// TestPipelineEndToEndBendWithDuplicateWay drives a parser-shaped
// three-node bend (avoiding a straight-through run so the default
// prune pass has nothing collinear to collapse) through Sink and Run,
// plus a second way that duplicates the first's nodes and tags, and
// checks the four output files and errorlog.mem land with a
// verifiable checksum.
func TestPipelineEndToEndBendWithDuplicateWay(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := t.TempDir()

	cfg := config.Config{
		Dir:          outDir,
		TmpDir:       tmpDir,
		TaggingRules: "rules.json",
		Slim:         true,
		// The synthetic graph below totals ~222m, well under the
		// default 500m isolated-component threshold; lower it so the
		// whole thing isn't pruned away as a dead end.
		PruneIsolatedM: 1,
	}

	p, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s := p.Sink()
	nodeCoords := map[uint64][2]float64{
		1: {0, 0},
		2: {0, 0.001},
		3: {0.001, 0.001},
	}
	const allTransports = 0xFF

	for id, ll := range nodeCoords {
		if err := s.AppendNode(id, ll[0], ll[1], allTransports); err != nil {
			t.Fatalf("AppendNode(%d): %v", id, err)
		}
	}

	tags := osm.WayTags{Name: "Main Street", Type: 1, Allow: allTransports}
	if err := s.AppendWay(100, tags, []uint64{1, 2, 3}); err != nil {
		t.Fatalf("AppendWay(100): %v", err)
	}
	// Duplicate of way 100: same tags, same nodes, different id.
	if err := s.AppendWay(200, tags, []uint64{1, 2, 3}); err != nil {
		t.Fatalf("AppendWay(200): %v", err)
	}

	if err := s.AppendRelation(900, osm.RelationData{Kind: osm.RelationRoute, Routes: allTransports}, osm.Members{Ways: []uint64{100}}); err != nil {
		t.Fatalf("AppendRelation(900): %v", err)
	}

	res, err := p.Run(outDir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", res.NodeCount)
	}
	if res.WayCount != 1 {
		t.Errorf("WayCount = %d, want 1 (one way deduplicated)", res.WayCount)
	}
	if res.DuplicateWays != 1 {
		t.Errorf("DuplicateWays = %d, want 1", res.DuplicateWays)
	}
	if res.SuperIterations < 1 || res.SuperIterations > config.DefaultMaxSuperIterations {
		t.Errorf("SuperIterations = %d, want between 1 and %d", res.SuperIterations, config.DefaultMaxSuperIterations)
	}

	for _, name := range []string{"nodes.mem", "segments.mem", "ways.mem", "relations.mem", "errorlog.mem"} {
		path := filepath.Join(outDir, name)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s missing: %v", name, err)
		}
		if err := xio.VerifyChecksum(path); err != nil {
			t.Errorf("%s: checksum verification failed: %v", name, err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestPipelineCloseReleasesTempDirLock checks that a second Pipeline
// cannot open against a TmpDir already held by a first one, and that
// closing the first lets the second proceed — the directory-level
// lock's actual contract, not just that New/Close return nil.
func TestPipelineCloseReleasesTempDirLock(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.Config{
		Dir:          t.TempDir(),
		TmpDir:       tmpDir,
		TaggingRules: "rules.json",
		Slim:         true,
	}

	p1, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New p1: %v", err)
	}

	p2Dir := t.TempDir()
	type openResult struct {
		p   *Pipeline
		err error
	}
	done := make(chan openResult, 1)
	go func() {
		p2, err := New(config.Config{Dir: p2Dir, TmpDir: tmpDir, TaggingRules: "rules.json", Slim: true}, zap.NewNop())
		done <- openResult{p2, err}
	}()

	select {
	case <-done:
		t.Fatal("second Pipeline opened against a locked TmpDir")
	case <-time.After(100 * time.Millisecond):
		// expected: blocked behind p1's lock
	}

	if err := p1.Close(); err != nil {
		t.Fatalf("p1.Close: %v", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("New p2 after p1.Close: %v", r.err)
		}
		if err := r.p.Close(); err != nil {
			t.Fatalf("p2.Close: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("second Pipeline never unblocked after p1.Close")
	}
}
