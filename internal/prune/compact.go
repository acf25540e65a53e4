package prune

import (
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/filesort"
)

// BuildRemap assigns each surviving node (every one not flagged
// NodePruned) a new, compacted index in original order, and
// entities.NoIndex to every pruned one, then physically rewrites the
// node store to hold only the survivors in their new order. The
// returned pdata is sized to the original node count — the remap
// RemovePrunedSegments and RemovePrunedTurnRelations rewrite node
// references through (§4.G: "set a pdata[old_index] = new_index remap
// table").
func BuildRemap(nodes *entities.NodesX) ([]uint32, error) {
	all, err := nodes.All()
	if err != nil {
		return nil, err
	}

	pdata := make([]uint32, len(all))
	survivors := make([]entities.NodeX, 0, len(all))
	var next uint32
	for i, n := range all {
		if n.HasFlag(entities.NodePruned) {
			pdata[i] = entities.NoIndex
			continue
		}
		pdata[i] = next
		survivors = append(survivors, n)
		next++
	}

	if err := nodes.ReplaceFromSlice(survivors); err != nil {
		return nil, err
	}
	return pdata, nil
}

// RemovePrunedSegments rewrites every segment's endpoints through
// pdata and re-sorts the result via filesort.Fixed, whose pre callback
// drops any segment already marked dead by a pruning pass (Node1 ==
// NoIndex), any whose endpoint maps to a pruned node, and any that
// collapsed to a self-loop under the remap (§4.G: "re-sorts the
// segment list via filesort_fixed with a pre callback that drops
// pruned segments").
func RemovePrunedSegments(segs *entities.SegmentsX, pdata []uint32, opts filesort.Options) error {
	pre := func(rec *entities.SegmentX, _ int64) bool {
		if rec.Node1 == entities.NoIndex {
			return false
		}
		n1, n2 := pdata[rec.Node1], pdata[rec.Node2]
		if n1 == entities.NoIndex || n2 == entities.NoIndex || n1 == n2 {
			return false
		}
		rec.Node1, rec.Node2, rec.Next2 = n1, n2, entities.NoIndex
		*rec = entities.NormalizeSegment(*rec)
		return true
	}

	inPath := segs.Path()
	outPath := inPath + ".pruned"
	if err := filesort.Fixed(inPath, outPath, entities.SegmentXCodec, pre, entities.CompareSegmentsByNodes, nil, opts); err != nil {
		return err
	}
	return segs.ReplaceFromFile(outPath)
}

// RemovePrunedTurnRelations rewrites every resolved turn relation's
// via/from/to node references through pdata into out, dropping any
// relation that references a pruned node (§4.G: "RemovePrunedTurnRelations
// rewrites via/from/to through pdata and drops any referencing
// NO_NODE").
func RemovePrunedTurnRelations(in, out *entities.TurnRelsX, pdata []uint32) error {
	for i := uint32(0); i < in.Count(); i++ {
		t, err := in.Lookup(i, 0)
		if err != nil {
			return err
		}

		via, from, to := pdata[t.Via], pdata[t.From], pdata[t.To]
		if via == entities.NoIndex || from == entities.NoIndex || to == entities.NoIndex {
			continue
		}
		t.Via, t.From, t.To = uint64(via), uint64(from), uint64(to)
		if err := out.Append(t); err != nil {
			return err
		}
	}
	return nil
}
