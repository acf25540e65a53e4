package entities

import "encoding/binary"

// NodeX is the extended, mutable form of a node during database
// construction: { id, allow, flags, lat, lon } per §3. Id holds the
// external OSM identifier until Sort reassigns it to the node's
// position in the sorted array.
type NodeX struct {
	ID    uint64
	Allow Transport
	Flags NodeFlag
	Lat   int32
	Lon   int32
}

// nodeXSize is 8+1+2+4+4.
const nodeXSize = 19

type nodeXCodec struct{}

func (nodeXCodec) Size() int { return nodeXSize }

func (nodeXCodec) Encode(v NodeX, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], v.ID)
	buf[8] = byte(v.Allow)
	binary.LittleEndian.PutUint16(buf[9:11], uint16(v.Flags))
	binary.LittleEndian.PutUint32(buf[11:15], uint32(v.Lat))
	binary.LittleEndian.PutUint32(buf[15:19], uint32(v.Lon))
}

func (nodeXCodec) Decode(buf []byte) NodeX {
	return NodeX{
		ID:    binary.LittleEndian.Uint64(buf[0:8]),
		Allow: Transport(buf[8]),
		Flags: NodeFlag(binary.LittleEndian.Uint16(buf[9:11])),
		Lat:   int32(binary.LittleEndian.Uint32(buf[11:15])),
		Lon:   int32(binary.LittleEndian.Uint32(buf[15:19])),
	}
}

// NodeXCodec is the xio.Codec[NodeX] instance used by NodesX and by
// any caller that needs to frame NodeX records directly (e.g. the
// final writer's re-sort pass).
var NodeXCodec = nodeXCodec{}

// NodesX is the extended node store.
type NodesX struct {
	*Store[NodeX]
}

// NewNodesX opens a node store under dir.
func NewNodesX(dir string, slim bool) (*NodesX, error) {
	s, err := New[NodeX](dir, "nodesx", NodeXCodec, nodeXID, nodeXReindex, slim)
	if err != nil {
		return nil, err
	}
	return &NodesX{s}, nil
}

func nodeXID(n NodeX) uint64 { return n.ID }

func nodeXReindex(n NodeX, index uint64) NodeX {
	n.ID = index
	return n
}

// CompareByID orders NodeX records by ascending original id, the sort
// key used before Sort reassigns ID to the final index.
func CompareByID(a, b NodeX) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// HasFlag reports whether f is set in n.Flags.
func (n NodeX) HasFlag(f NodeFlag) bool { return n.Flags&f != 0 }

// SetFlag returns a copy of n with f set.
func (n NodeX) SetFlag(f NodeFlag) NodeX {
	n.Flags |= f
	return n
}

// AllowsAny reports whether n permits at least one transport in t.
func (n NodeX) AllowsAny(t Transport) bool { return n.Allow&t != 0 }
