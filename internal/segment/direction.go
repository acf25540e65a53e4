package segment

import "github.com/ogrid/graphcore/internal/entities"

// AllowsDirection reports whether seg permits travel from node `from`
// to node `to`, honouring its one-way flags. Both nodes must be one of
// seg's two endpoints. Shared by turn-restriction resolution and
// super-segment construction, the two consumers that need to ask
// "can I leave this node along this edge."
func AllowsDirection(seg entities.SegmentX, from, to uint32) bool {
	flags := entities.SegFlags(seg.Distance)
	switch {
	case seg.Node1 == from && seg.Node2 == to:
		return flags&entities.FlagOneway2to1 == 0
	case seg.Node1 == to && seg.Node2 == from:
		return flags&entities.FlagOneway1to2 == 0
	default:
		return false
	}
}

// OtherNode returns the endpoint of seg that is not n.
func OtherNode(seg entities.SegmentX, n uint32) uint32 {
	if seg.Node1 == n {
		return seg.Node2
	}
	return seg.Node1
}
