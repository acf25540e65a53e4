package entities

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ogrid/graphcore/internal/filesort"
	"github.com/ogrid/graphcore/internal/xio"
)

// RouteRelX is a route relation: { id, routes bitset, nodes[], ways[],
// relations[] }, variable length because member lists are unbounded
// (§3). Transport is reused as the "routes" bitset: a route relation
// declares which travel classes it is a route for.
type RouteRelX struct {
	ID        uint64
	Routes    Transport
	Nodes     []uint64
	Ways      []uint64
	Relations []uint64
}

type routeRelXCodec struct{}

func (routeRelXCodec) Encode(v RouteRelX) []byte {
	size := 8 + 1 + 4 + 8*len(v.Nodes) + 4 + 8*len(v.Ways) + 4 + 8*len(v.Relations)
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], v.ID)
	off += 8
	buf[off] = byte(v.Routes)
	off++
	off = putU64Slice(buf, off, v.Nodes)
	off = putU64Slice(buf, off, v.Ways)
	off = putU64Slice(buf, off, v.Relations)
	return buf
}

func putU64Slice(buf []byte, off int, s []uint64) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
	off += 4
	for _, v := range s {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
	return off
}

func getU64Slice(buf []byte, off int) ([]uint64, int) {
	n := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	if n == 0 {
		return nil, off
	}
	s := make([]uint64, n)
	for i := range s {
		s[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	return s, off
}

func (routeRelXCodec) Decode(buf []byte) RouteRelX {
	var v RouteRelX
	off := 0
	v.ID = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	v.Routes = Transport(buf[off])
	off++
	v.Nodes, off = getU64Slice(buf, off)
	v.Ways, off = getU64Slice(buf, off)
	v.Relations, off = getU64Slice(buf, off)
	return v
}

// RouteRelXCodec is the filesort.VaryCodec[RouteRelX] instance.
var RouteRelXCodec = routeRelXCodec{}

// CompareRouteRelXByID orders route relations by ascending id, a
// stable processing order for the fixpoint passes.
func CompareRouteRelXByID(a, b RouteRelX) int {
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// RouteRelsX is the route-relation store. Unlike Store[T] it has no
// fixed record size, so it exposes only the append/sort/scan surface
// filesort.Vary needs — no Index/Lookup, since route relations are
// always walked as a full stream per pass (§4.F has no per-relation
// random access in its fixpoint).
type RouteRelsX struct {
	dir        string
	w          *xio.SeqWriter
	buildPath  string
	parsedPath string
	finalPath  string
	finished   bool
}

// NewRouteRelsX opens a route-relation store under dir.
func NewRouteRelsX(dir string) (*RouteRelsX, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("entities: mkdir %s: %w", dir, err)
	}
	buildPath := filepath.Join(dir, "routerelsx.building.mem")
	w, err := xio.NewSeqWriter(buildPath)
	if err != nil {
		return nil, err
	}
	return &RouteRelsX{dir: dir, w: w, buildPath: buildPath}, nil
}

// Append writes one route relation to the stream.
func (r *RouteRelsX) Append(rec RouteRelX) error {
	if r.finished {
		return fmt.Errorf("entities: routerelsx: Append after Finish")
	}
	payload := RouteRelXCodec.Encode(rec)
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := r.w.Write(lenBuf); err != nil {
		return err
	}
	_, err := r.w.Write(payload)
	return err
}

// Finish flushes and renames the build file to its parsed name.
func (r *RouteRelsX) Finish() error {
	if r.finished {
		return nil
	}
	if err := r.w.Close(); err != nil {
		return err
	}
	r.parsedPath = filepath.Join(r.dir, "routerelsx.parsed.mem")
	if err := os.Rename(r.buildPath, r.parsedPath); err != nil {
		return err
	}
	r.finished = true
	return nil
}

// Sort sorts the parsed stream by compare, renaming the result to the
// canonical "routerelsx.mem".
func (r *RouteRelsX) Sort(compare filesort.CompareFunc[RouteRelX], opts filesort.Options) error {
	if !r.finished {
		if err := r.Finish(); err != nil {
			return err
		}
	}
	finalPath := filepath.Join(r.dir, "routerelsx.mem")
	if err := filesort.Vary(r.parsedPath, finalPath, RouteRelXCodec, nil, compare, nil, opts); err != nil {
		return err
	}
	os.Remove(r.parsedPath)
	r.finalPath = finalPath
	return nil
}

// Each streams every relation in the canonical (post-Sort) file to fn,
// stopping early if fn returns an error. Relation processing's
// fixpoint (§4.F) calls this once per pass.
func (r *RouteRelsX) Each(fn func(RouteRelX) error) error {
	path := r.finalPath
	if path == "" {
		path = r.parsedPath
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	lenBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(f, lenBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		n := binary.LittleEndian.Uint32(lenBuf)
		payload := make([]byte, n)
		if _, err := io.ReadFull(f, payload); err != nil {
			return err
		}
		if err := fn(RouteRelXCodec.Decode(payload)); err != nil {
			return err
		}
	}
}

// Free removes the store's files.
func (r *RouteRelsX) Free() error {
	if r.finalPath != "" {
		os.Remove(r.finalPath)
	}
	if r.parsedPath != "" {
		os.Remove(r.parsedPath)
	}
	return nil
}

// TurnRelX is a turn relation: { id, from, via, to, restriction,
// except } per §3. Before relation.ResolveTurns, From and To are the
// OSM ids of the from/to ways and Via is the OSM id of the via node;
// ResolveTurns rewrites them in place to, respectively, the other-node
// index of the matched from/to segment and the via node's index.
type TurnRelX struct {
	ID          uint64
	From        uint64
	Via         uint64
	To          uint64
	Restriction TurnRestriction
	Except      Transport
}

const turnRelXSize = 8*4 + 1 + 1

type turnRelXCodec struct{}

func (turnRelXCodec) Size() int { return turnRelXSize }

func (turnRelXCodec) Encode(v TurnRelX, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], v.ID)
	binary.LittleEndian.PutUint64(buf[8:16], v.From)
	binary.LittleEndian.PutUint64(buf[16:24], v.Via)
	binary.LittleEndian.PutUint64(buf[24:32], v.To)
	buf[32] = byte(v.Restriction)
	buf[33] = byte(v.Except)
}

func (turnRelXCodec) Decode(buf []byte) TurnRelX {
	return TurnRelX{
		ID:          binary.LittleEndian.Uint64(buf[0:8]),
		From:        binary.LittleEndian.Uint64(buf[8:16]),
		Via:         binary.LittleEndian.Uint64(buf[16:24]),
		To:          binary.LittleEndian.Uint64(buf[24:32]),
		Restriction: TurnRestriction(buf[32]),
		Except:      Transport(buf[33]),
	}
}

// TurnRelXCodec is the xio.Codec[TurnRelX] instance used by TurnRelsX.
var TurnRelXCodec = turnRelXCodec{}

// TurnRelsX is the turn-relation store.
type TurnRelsX struct {
	*Store[TurnRelX]
}

// NewTurnRelsX opens a turn-relation store under dir.
func NewTurnRelsX(dir string, slim bool) (*TurnRelsX, error) {
	s, err := New[TurnRelX](dir, "turnrelsx", TurnRelXCodec, turnRelXID, turnRelXReindex, slim)
	if err != nil {
		return nil, err
	}
	return &TurnRelsX{s}, nil
}

func turnRelXID(t TurnRelX) uint64 { return t.ID }

// turnRelXReindex is the identity: turn relations keep their own id
// (they are never looked up by a reassigned positional index the way
// nodes/ways are).
func turnRelXReindex(t TurnRelX, _ uint64) TurnRelX { return t }

// CompareTurnRelXByVia orders by (via, from, to), the final writer's
// re-sort key (§4.I).
func CompareTurnRelXByVia(a, b TurnRelX) int {
	switch {
	case a.Via != b.Via:
		if a.Via < b.Via {
			return -1
		}
		return 1
	case a.From != b.From:
		if a.From < b.From {
			return -1
		}
		return 1
	case a.To != b.To:
		if a.To < b.To {
			return -1
		}
		return 1
	default:
		return 0
	}
}
