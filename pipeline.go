// Package graphcore assembles the extended-entity stores and the
// per-phase packages (segment, relation, prune, super, writer) into
// the single fixed pipeline the spec's phase ordering describes:
// parse -> sort -> split -> process segments -> process relations ->
// prune -> super -> merge -> write (§5).
package graphcore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ogrid/graphcore/config"
	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/filesort"
	"github.com/ogrid/graphcore/internal/fixme"
	"github.com/ogrid/graphcore/internal/prune"
	"github.com/ogrid/graphcore/internal/relation"
	"github.com/ogrid/graphcore/internal/segment"
	"github.com/ogrid/graphcore/internal/super"
	"github.com/ogrid/graphcore/internal/writer"
	"github.com/ogrid/graphcore/internal/xio"
	"github.com/ogrid/graphcore/pkg/osm"
)

// Pipeline holds every extended-entity store a run needs, open for
// Append, from the moment a parser starts feeding Sink() until Run
// has written the final four files.
type Pipeline struct {
	cfg    config.Config
	logger *zap.Logger

	nodes       *entities.NodesX
	ways        *entities.WaysX
	segs        *entities.SegmentsX
	routeRels   *entities.RouteRelsX
	rawTurnRels *entities.TurnRelsX
	wayRefs     *segment.WayRefsWriter

	dirLock      *xio.DirLock
	textLog      *os.File
	diag         *diag.Sink
	fixmeEntries []fixme.Entry
}

// New opens every extended-entity store under cfg.TmpDir and returns
// a Pipeline ready to hand its Sink() to a parser. cfg is defaulted
// and validated first, matching the teacher's Open(cfg) contract.
func New(cfg config.Config, logger *zap.Logger) (*Pipeline, error) {
	cfg = config.WithDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dirLock, err := xio.LockDir(cfg.TmpDir)
	if err != nil {
		return nil, fmt.Errorf("graphcore: lock temp dir: %w", err)
	}
	if err := dirLock.Lock(); err != nil {
		dirLock.Close()
		return nil, fmt.Errorf("graphcore: acquire temp dir lock: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			dirLock.Unlock()
			dirLock.Close()
		}
	}()

	entDir := filepath.Join(cfg.TmpDir, "entities")
	nodes, err := entities.NewNodesX(entDir, cfg.Slim)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open nodes: %w", err)
	}
	ways, err := entities.NewWaysX(entDir, cfg.Slim)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open ways: %w", err)
	}
	segs, err := entities.NewSegmentsX(entDir, cfg.Slim)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open segments: %w", err)
	}
	routeRels, err := entities.NewRouteRelsX(entDir)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open route relations: %w", err)
	}
	rawTurnRels, err := entities.NewTurnRelsX(filepath.Join(cfg.TmpDir, "turns-raw"), cfg.Slim)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open turn relations: %w", err)
	}
	wayRefs, err := segment.NewWayRefsWriter(cfg.TmpDir)
	if err != nil {
		return nil, fmt.Errorf("graphcore: open way refs: %w", err)
	}

	textLog, err := os.Create(filepath.Join(cfg.TmpDir, "diagnostics.log"))
	if err != nil {
		return nil, fmt.Errorf("graphcore: create diagnostics log: %w", err)
	}

	p := &Pipeline{
		cfg:         cfg,
		logger:      logger,
		nodes:       nodes,
		ways:        ways,
		segs:        segs,
		routeRels:   routeRels,
		rawTurnRels: rawTurnRels,
		wayRefs:     wayRefs,
		dirLock:     dirLock,
		textLog:     textLog,
		diag:        diag.NewSink(logger, textLog),
	}
	ok = true
	p.diag.OnEmit(p.collectFixmeEntry)
	return p, nil
}

// collectFixmeEntry turns one rendered diagnostic into the fixme
// companion file's Entry shape, installed as the diag.Sink's OnEmit
// hook so the binary companion file needs no second pass over the
// text log. A diagnostic whose Entity carries no resolvable reference
// (EntitySegment, EntityNone) gets an entry with no Refs, which
// Resolver.Coordinate correctly treats as unresolved.
func (p *Pipeline) collectFixmeEntry(d diag.Diagnostic) {
	var refs []fixme.Reference
	switch d.Entity {
	case diag.EntityNode:
		refs = []fixme.Reference{{Kind: fixme.RefNode, ID: d.OriginalID}}
	case diag.EntityWay:
		refs = []fixme.Reference{{Kind: fixme.RefWay, ID: d.OriginalID}}
	case diag.EntityRelation:
		refs = []fixme.Reference{{Kind: fixme.RefRelation, ID: d.OriginalID}}
	}
	p.fixmeEntries = append(p.fixmeEntries, fixme.Entry{Offset: d.Offset, Length: d.Length, Refs: refs})
}

// Sink returns the pkg/osm.Sink a parser drives this Pipeline with.
func (p *Pipeline) Sink() osm.Sink { return sink{p: p} }

// Result summarizes one pipeline run's output.
type Result struct {
	writer.Result
	DuplicateWays   int
	PrunedNodes     int
	Warnings        int
	DataQualityHits int
	SuperIterations int
}

func (p *Pipeline) sortOpts() filesort.Options {
	return filesort.Options{
		RAMBytes: int64(p.cfg.SortRAMMB) * 1024 * 1024,
		Threads:  int(p.cfg.SortThreads),
		TempDir:  p.cfg.TmpDir,
	}
}

// Run executes every remaining phase after a parser has finished
// feeding Sink(): way dedup and sort, node sort, segmentation,
// relation propagation/resolution, pruning, super-segment
// construction, and the final file write.
func (p *Pipeline) Run(outDir string) (Result, error) {
	opts := p.sortOpts()

	wayRefsPath, err := p.wayRefs.Close()
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: close way refs: %w", err)
	}

	refsHash := make(map[uint64]uint64)
	if err := segment.EachWayRefs(wayRefsPath, func(refs segment.WayRefs) error {
		refsHash[refs.WayID] = entities.HashNodeRefs(refs.Nodes)
		return nil
	}); err != nil {
		return Result{}, fmt.Errorf("graphcore: scan way refs: %w", err)
	}

	keep, dropped, err := entities.BuildWayDedupKeepSet(p.ways, refsHash)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: build way dedup set: %w", err)
	}
	for _, id := range dropped {
		p.diag.Emit(diag.Diagnostic{Kind: diag.DataQuality, Entity: diag.EntityWay, OriginalID: id, Template: "duplicate way discarded"})
	}
	dedupPre := func(w *entities.WayX, _ int64) bool { return keep[w.ID] }
	if err := p.ways.Sort(entities.CompareWayXByID, dedupPre, nil, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort ways: %w", err)
	}

	if err := p.nodes.Sort(entities.CompareByID, nil, nil, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort nodes: %w", err)
	}

	if err := segment.Split(wayRefsPath, p.ways, p.nodes, p.segs, p.diag); err != nil {
		return Result{}, fmt.Errorf("graphcore: split ways: %w", err)
	}
	if err := p.segs.Finish(); err != nil {
		return Result{}, fmt.Errorf("graphcore: finish segments: %w", err)
	}
	usedWays := segment.NewUsedWays(p.ways)
	if err := segment.Process(p.segs, p.nodes, p.ways, usedWays, opts, p.diag); err != nil {
		return Result{}, fmt.Errorf("graphcore: process segments: %w", err)
	}

	if err := p.routeRels.Sort(entities.CompareRouteRelXByID, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort route relations: %w", err)
	}
	if err := relation.PropagateRoutes(p.routeRels, p.ways, p.diag); err != nil {
		return Result{}, fmt.Errorf("graphcore: propagate routes: %w", err)
	}

	segsSlice, err := p.segs.All()
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: load segments: %w", err)
	}

	if err := p.rawTurnRels.Sort(entities.CompareTurnRelXByVia, nil, nil, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort raw turn relations: %w", err)
	}
	adj := segment.Index(segsSlice, int(p.nodes.Count()))

	resolvedTurnRels, err := entities.NewTurnRelsX(filepath.Join(p.cfg.TmpDir, "turns-resolved"), p.cfg.Slim)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: open resolved turn relations: %w", err)
	}
	if err := relation.ResolveTurns(p.rawTurnRels, p.nodes, p.ways, adj, resolvedTurnRels, p.diag); err != nil {
		return Result{}, fmt.Errorf("graphcore: resolve turns: %w", err)
	}
	if err := resolvedTurnRels.Sort(entities.CompareTurnRelXByVia, nil, nil, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort resolved turn relations: %w", err)
	}

	prunedSegs, prunedCount, err := prune.Run(p.nodes, segsSlice, p.ways, prune.Options{
		StraightToleranceM: float64(p.cfg.PruneStraightM),
		IsolatedThresholdM: float64(p.cfg.PruneIsolatedM),
		ShortThresholdM:    float64(p.cfg.PruneShortM),
	})
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: prune: %w", err)
	}

	pdata, err := prune.BuildRemap(p.nodes)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: build node remap: %w", err)
	}

	if err := p.segs.ReplaceFromSlice(prunedSegs); err != nil {
		return Result{}, fmt.Errorf("graphcore: replace segments: %w", err)
	}
	if err := prune.RemovePrunedSegments(p.segs, pdata, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: remove pruned segments: %w", err)
	}

	prunedTurnRels, err := entities.NewTurnRelsX(filepath.Join(p.cfg.TmpDir, "turns-pruned"), p.cfg.Slim)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: open pruned turn relations: %w", err)
	}
	if err := prune.RemovePrunedTurnRelations(resolvedTurnRels, prunedTurnRels, pdata); err != nil {
		return Result{}, fmt.Errorf("graphcore: remove pruned turn relations: %w", err)
	}
	if err := prunedTurnRels.Finish(); err != nil {
		return Result{}, fmt.Errorf("graphcore: finish pruned turn relations: %w", err)
	}
	if err := prunedTurnRels.Sort(entities.CompareTurnRelXByVia, nil, nil, opts); err != nil {
		return Result{}, fmt.Errorf("graphcore: sort pruned turn relations: %w", err)
	}

	finalSegs, err := p.segs.All()
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: reload segments: %w", err)
	}

	merged, superIterations, err := p.buildSuperHierarchy(finalSegs)
	if err != nil {
		return Result{}, err
	}

	finalTurnRels, err := prunedTurnRels.All()
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: load final turn relations: %w", err)
	}

	wres, err := writer.WriteAll(outDir, p.nodes, merged, p.ways, finalTurnRels)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: write output: %w", err)
	}

	routeRelMap, err := fixme.BuildRouteRelMap(p.routeRels)
	if err != nil {
		return Result{}, fmt.Errorf("graphcore: build route relation map: %w", err)
	}
	resolver := fixme.NewResolver(p.nodes, p.ways, merged, routeRelMap)
	sortedEntries, geo := fixme.Reindex(p.fixmeEntries, resolver)
	if err := fixme.WriteErrorLog(outDir, sortedEntries, geo); err != nil {
		return Result{}, fmt.Errorf("graphcore: write error log: %w", err)
	}

	if err := p.diag.Flush(); err != nil {
		return Result{}, fmt.Errorf("graphcore: flush diagnostics: %w", err)
	}
	warnings, dataQuality := p.diag.Counts()

	if !p.cfg.KeepIntermediate {
		var cleanupErr error
		cleanupErr = multierr.Append(cleanupErr, p.nodes.Free(false))
		cleanupErr = multierr.Append(cleanupErr, p.ways.Free(false))
		cleanupErr = multierr.Append(cleanupErr, p.segs.Free(false))
		cleanupErr = multierr.Append(cleanupErr, p.rawTurnRels.Free(false))
		cleanupErr = multierr.Append(cleanupErr, resolvedTurnRels.Free(false))
		cleanupErr = multierr.Append(cleanupErr, prunedTurnRels.Free(false))
		if cleanupErr != nil {
			return Result{}, fmt.Errorf("graphcore: free intermediate stores: %w", cleanupErr)
		}
	}

	return Result{
		Result:          wres,
		DuplicateWays:   len(dropped),
		PrunedNodes:     prunedCount,
		Warnings:        warnings,
		DataQualityHits: dataQuality,
		SuperIterations: superIterations,
	}, nil
}

// buildSuperHierarchy repeatedly chooses super-nodes over the current
// segment graph, summarizes it into super-segments, and merges the
// two back into the next iteration's graph — coarsening one level
// per pass. It stops once a pass fails to shrink the segment count
// any further (a fixpoint: nothing left to coarsen) or after
// cfg.MaxSuperIterations passes, whichever comes first, and returns
// the final merged graph and the number of passes actually run.
func (p *Pipeline) buildSuperHierarchy(segs []entities.SegmentX) ([]entities.SegmentX, int, error) {
	level := segs
	sort.Slice(level, func(i, j int) bool { return entities.CompareSegmentsByNodes(level[i], level[j]) < 0 })

	iterations := 0
	for i := 0; i < int(p.cfg.MaxSuperIterations); i++ {
		if _, err := super.ChooseSuperNodes(p.nodes, level, p.ways); err != nil {
			return nil, 0, fmt.Errorf("graphcore: choose super nodes: %w", err)
		}
		superSegs, err := super.CreateSuperSegments(p.nodes, level, p.ways)
		if err != nil {
			return nil, 0, fmt.Errorf("graphcore: create super segments: %w", err)
		}
		sort.Slice(superSegs, func(i, j int) bool { return entities.CompareSegmentsByNodes(superSegs[i], superSegs[j]) < 0 })

		merged := super.MergeSuperSegments(level, superSegs)
		iterations++
		if len(merged) >= len(level) {
			level = merged
			break
		}
		level = merged
	}
	return level, iterations, nil
}

// Close releases the pipeline's open file handles and its temp
// directory lock, for a caller that abandons a run after
// construction. Run does not call Close itself: a caller that wants
// to inspect the run's own files before releasing the directory lock
// calls it explicitly once Run returns.
func (p *Pipeline) Close() error {
	lockErr := p.dirLock.Unlock()
	closeErr := p.dirLock.Close()
	logErr := p.textLog.Close()
	return multierr.Combine(lockErr, closeErr, logErr)
}
