package entities

import "github.com/zeebo/xxh3"

// wayContentKey is the tuple two ways must agree on to be considered
// duplicates (E3: "same nodes, same tags"): their tag-derived
// attribute bundle plus a hash of their node-reference list (supplied
// by the caller, since WayX itself carries no node list after
// SplitWays runs — only the pre-split raw stream does).
type wayContentKey struct {
	way      Way
	refsHash uint64
}

// BuildWayDedupKeepSet streams ways (the not-yet-sorted append
// stream, in original parse order, via WaysX.EachParsed) and decides,
// for every group of ways sharing an identical wayContentKey, which
// one survives: the first one encountered in parse order. refsHash
// maps a way's original id to a content hash of its node-reference
// list (built from the parser's raw way-refs stream, independently of
// WaysX, since the two streams are correlated only by original id
// before either is sorted).
//
// Returns the set of surviving original ids and the ids dropped as
// duplicates, in the order they were dropped (for diagnostic
// logging).
func BuildWayDedupKeepSet(ways *WaysX, refsHash map[uint64]uint64) (keep map[uint64]bool, dropped []uint64, err error) {
	seen := make(map[wayContentKey]uint64)
	keep = make(map[uint64]bool)

	err = ways.EachParsed(func(w WayX) error {
		key := wayContentKey{way: w.Way, refsHash: refsHash[w.ID]}
		if _, ok := seen[key]; ok {
			dropped = append(dropped, w.ID)
			return nil
		}
		seen[key] = w.ID
		keep[w.ID] = true
		return nil
	})
	return keep, dropped, err
}

// HashNodeRefs hashes an ordered node-reference list for use as the
// refsHash input to BuildWayDedupKeepSet. Order-sensitive: a way
// sharing the same node set in a different sequence is a different
// way, not a duplicate.
func HashNodeRefs(nodes []uint64) uint64 {
	buf := make([]byte, 8*len(nodes))
	for i, n := range nodes {
		buf[i*8+0] = byte(n)
		buf[i*8+1] = byte(n >> 8)
		buf[i*8+2] = byte(n >> 16)
		buf[i*8+3] = byte(n >> 24)
		buf[i*8+4] = byte(n >> 32)
		buf[i*8+5] = byte(n >> 40)
		buf[i*8+6] = byte(n >> 48)
		buf[i*8+7] = byte(n >> 56)
	}
	return xxh3.Hash(buf)
}
