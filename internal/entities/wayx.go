package entities

import "encoding/binary"

// Way is the tag-derived attribute bundle every WayX carries, packed
// with fixed-offset fields per §3 (no reflection-based codec, matching
// the teacher's hand-rolled byte-offset records).
type Way struct {
	Name    uint32 // byte offset into the name pool
	Type    WayType
	Allow   Transport
	Props   WayProps
	Speed   uint8
	Weight  uint16
	Height  uint16
	Width   uint16
	Length  uint8
	Incline int8
}

// WayX is the extended, mutable form of a way: { id, way } per §3.
type WayX struct {
	ID  uint64
	Way Way
}

// waySize: name(4) type(1) allow(1) props(2) speed(1) weight(2)
// height(2) width(2) length(1) incline(1) = 17.
const waySize = 17

// wayXSize: id(8) + way(17) = 25.
const wayXSize = 8 + waySize

type wayXCodec struct{}

func (wayXCodec) Size() int { return wayXSize }

func (wayXCodec) Encode(v WayX, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], v.ID)
	encodeWay(v.Way, buf[8:8+waySize])
}

func encodeWay(w Way, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], w.Name)
	buf[4] = byte(w.Type)
	buf[5] = byte(w.Allow)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(w.Props))
	buf[8] = w.Speed
	binary.LittleEndian.PutUint16(buf[9:11], w.Weight)
	binary.LittleEndian.PutUint16(buf[11:13], w.Height)
	binary.LittleEndian.PutUint16(buf[13:15], w.Width)
	buf[15] = w.Length
	buf[16] = byte(w.Incline)
}

func decodeWay(buf []byte) Way {
	return Way{
		Name:    binary.LittleEndian.Uint32(buf[0:4]),
		Type:    WayType(buf[4]),
		Allow:   Transport(buf[5]),
		Props:   WayProps(binary.LittleEndian.Uint16(buf[6:8])),
		Speed:   buf[8],
		Weight:  binary.LittleEndian.Uint16(buf[9:11]),
		Height:  binary.LittleEndian.Uint16(buf[11:13]),
		Width:   binary.LittleEndian.Uint16(buf[13:15]),
		Length:  buf[15],
		Incline: int8(buf[16]),
	}
}

func (wayXCodec) Decode(buf []byte) WayX {
	return WayX{
		ID:  binary.LittleEndian.Uint64(buf[0:8]),
		Way: decodeWay(buf[8 : 8+waySize]),
	}
}

// WayXCodec is the xio.Codec[WayX] instance used by WaysX.
var WayXCodec = wayXCodec{}

// WaysX is the extended way store, paired with its name pool.
type WaysX struct {
	*Store[WayX]
	Names *NamePool
}

// NewWaysX opens a way store (and its name pool) under dir.
func NewWaysX(dir string, slim bool) (*WaysX, error) {
	s, err := New[WayX](dir, "waysx", WayXCodec, wayXID, wayXReindex, slim)
	if err != nil {
		return nil, err
	}
	names, err := NewNamePool(dir)
	if err != nil {
		return nil, err
	}
	return &WaysX{Store: s, Names: names}, nil
}

func wayXID(w WayX) uint64 { return w.ID }

func wayXReindex(w WayX, index uint64) WayX {
	w.ID = index
	return w
}

// CompareWayXByID orders WayX by ascending original id (invariant 1:
// "idata[] is strictly increasing OSM way IDs").
func CompareWayXByID(a, b WayX) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// wayKey is the tuple WaysCompare orders on: two ways are "the same
// class" iff this key compares equal (§GLOSSARY).
type wayKey struct {
	typ             WayType
	allow           Transport
	props           WayProps
	speed           uint8
	weight          uint16
	height          uint16
	width           uint16
	length          uint8
}

func keyOf(w Way) wayKey {
	return wayKey{w.Type, w.Allow, w.Props, w.Speed, w.Weight, w.Height, w.Width, w.Length}
}

// WaysCompare totally orders two ways on (type, allow, props, speed,
// weight, height, width, length); equal iff the same "class" per the
// GLOSSARY definition, used by both segment dedup and super-node
// classification.
func WaysCompare(a, b Way) int {
	ka, kb := keyOf(a), keyOf(b)
	switch {
	case ka.typ != kb.typ:
		return int(ka.typ) - int(kb.typ)
	case ka.allow != kb.allow:
		return int(ka.allow) - int(kb.allow)
	case ka.props != kb.props:
		return int(ka.props) - int(kb.props)
	case ka.speed != kb.speed:
		return int(ka.speed) - int(kb.speed)
	case ka.weight != kb.weight:
		return int(ka.weight) - int(kb.weight)
	case ka.height != kb.height:
		return int(ka.height) - int(kb.height)
	case ka.width != kb.width:
		return int(ka.width) - int(kb.width)
	case ka.length != kb.length:
		return int(ka.length) - int(kb.length)
	default:
		return 0
	}
}

// SameClass reports whether a and b are the same way class under
// WaysCompare.
func SameClass(a, b Way) bool { return WaysCompare(a, b) == 0 }
