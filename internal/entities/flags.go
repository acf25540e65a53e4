package entities

// Transport is a one-hot bit in a transport bitset (Way.Allow,
// Node.Allow, TurnRelX.Except): the vehicle/traveller classes a
// routing graph distinguishes. Eight transports fit a uint8 bitset.
type Transport uint8

const (
	TransportFoot Transport = 1 << iota
	TransportBicycle
	TransportMoped
	TransportMotorcycle
	TransportMotorcar
	TransportGoods
	TransportHGV
	TransportPSV
)

// AllTransports is the full bitset, used as the default Allow when a
// way's tags impose no restriction.
const AllTransports = Transport(0xFF)

// WayType enumerates the highway classes carried in WayX.Way.Type.
type WayType uint8

const (
	WayMotorway WayType = iota
	WayTrunk
	WayPrimary
	WaySecondary
	WayTertiary
	WayUnclassified
	WayResidential
	WayService
	WayTrack
	WayCycleway
	WayPath
	WaySteps
	WayFerry
)

// WayProps is the bitset of way properties that route relations OR
// into (Properties_FootRoute, Properties_BicycleRoute, ...) plus
// physical attributes carried from tags (paved, bridge, tunnel).
type WayProps uint16

const (
	PropPaved WayProps = 1 << iota
	PropMultilane
	PropBridge
	PropTunnel
	PropFootRoute
	PropBicycleRoute
	PropMopedRoute
	PropMotorcycleRoute
	PropMotorcarRoute
	PropGoodsRoute
	PropHGVRoute
	PropPSVRoute
	PropOneway
	PropArea
)

// PropForTransport returns the WayProps route-membership bit a route
// relation ORs in for transport t, satisfying "OR the relevant
// Properties_FootRoute/BicycleRoute/etc. into the way's props".
func PropForTransport(t Transport) WayProps {
	switch t {
	case TransportFoot:
		return PropFootRoute
	case TransportBicycle:
		return PropBicycleRoute
	case TransportMoped:
		return PropMopedRoute
	case TransportMotorcycle:
		return PropMotorcycleRoute
	case TransportMotorcar:
		return PropMotorcarRoute
	case TransportGoods:
		return PropGoodsRoute
	case TransportHGV:
		return PropHGVRoute
	case TransportPSV:
		return PropPSVRoute
	default:
		return 0
	}
}

// NodeFlag is the bitset carried in NodeX.Flags.
type NodeFlag uint16

const (
	NodeTurnRestrict NodeFlag = 1 << iota
	NodeTurnRestrict2
	NodeSuper
	NodePruned
)

// Segment distance encoding. The spec's prose describes "a 28-bit
// length in metres with high-bit flags ONEWAY_1TO2, ONEWAY_2TO1, AREA,
// SEGMENT_SUPER, SEGMENT_NORMAL, INCLINEUP_1TO2, INCLINEUP_2TO1" — 28
// length bits plus 7 named flags does not fit in a uint32. Resolved
// here (see DESIGN.md) as a 24-bit length (still far beyond any real
// segment, the longest OSM way segments run a few kilometres) plus 8
// high flag bits, which is enough for all seven named flags
// simultaneously with one bit to spare.
const (
	DistLengthBits = 24
	DistLengthMask = uint32(1)<<DistLengthBits - 1

	FlagOneway1to2 = uint32(1) << (DistLengthBits + 0)
	FlagOneway2to1 = uint32(1) << (DistLengthBits + 1)
	FlagArea       = uint32(1) << (DistLengthBits + 2)
	FlagSegSuper   = uint32(1) << (DistLengthBits + 3)
	FlagSegNormal  = uint32(1) << (DistLengthBits + 4)
	FlagInclineUp1to2 = uint32(1) << (DistLengthBits + 5)
	FlagInclineUp2to1 = uint32(1) << (DistLengthBits + 6)

	DistFlagsMask = ^DistLengthMask
)

// SegLength returns the metre length packed into a distance word.
func SegLength(distance uint32) uint32 { return distance & DistLengthMask }

// SegFlags returns the flag bits packed into a distance word.
func SegFlags(distance uint32) uint32 { return distance & DistFlagsMask }

// MakeDistance packs a length and a set of flag bits (already shifted,
// e.g. FlagOneway1to2) into one distance word.
func MakeDistance(lengthM uint32, flags uint32) uint32 {
	return (lengthM & DistLengthMask) | (flags & DistFlagsMask)
}

// TurnRestriction enumerates the prohibitive/prescriptive restriction
// codes a TurnRelX carries.
type TurnRestriction uint8

const (
	RestrictNone TurnRestriction = iota
	RestrictNoLeftTurn
	RestrictNoRightTurn
	RestrictNoStraightOn
	RestrictNoUTurn
	RestrictOnlyLeftTurn
	RestrictOnlyRightTurn
	RestrictOnlyStraightOn
)

// IsProhibitive reports whether r is a no_* restriction.
func (r TurnRestriction) IsProhibitive() bool {
	return r >= RestrictNoLeftTurn && r <= RestrictNoUTurn
}

// IsPrescriptive reports whether r is an only_* restriction.
func (r TurnRestriction) IsPrescriptive() bool {
	return r >= RestrictOnlyLeftTurn && r <= RestrictOnlyStraightOn
}

// Prohibitive maps an only_* restriction to the prohibitive form
// relation.ResolveTurns records when it enumerates forbidden
// alternatives at a via node (§4.F prescriptive handling).
func (r TurnRestriction) Prohibitive() TurnRestriction {
	switch r {
	case RestrictOnlyLeftTurn:
		return RestrictNoLeftTurn
	case RestrictOnlyRightTurn:
		return RestrictNoRightTurn
	case RestrictOnlyStraightOn:
		return RestrictNoStraightOn
	default:
		return r
	}
}

// Sentinel indexes, matching NO_NODE/NO_WAY/NO_RELATION/NO_SEGMENT.
const NoIndex = ^uint32(0)
