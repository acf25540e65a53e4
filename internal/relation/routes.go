// Package relation implements §4.F: route-relation transport
// propagation and turn-restriction resolution against the live
// node/segment/way graph.
package relation

import (
	"github.com/ogrid/graphcore/internal/diag"
	"github.com/ogrid/graphcore/internal/entities"
)

type routeRel struct {
	id        uint64
	routes    entities.Transport
	wayIDs    []uint64
	relIDs    []uint64
}

// PropagateRoutes implements the route-relation fixpoint: pass 1
// applies every relation's own declared routes to its member ways;
// each later pass only reprocesses relations whose transport set grew
// via a parent relation, stopping when a pass contributes nothing new
// or after 8 passes (§4.F).
func PropagateRoutes(routeRels *entities.RouteRelsX, ways *entities.WaysX, sink *diag.Sink) error {
	var rels []routeRel
	if err := routeRels.Each(func(r entities.RouteRelX) error {
		rels = append(rels, routeRel{id: r.ID, routes: r.Routes, wayIDs: r.Ways, relIDs: r.Relations})
		return nil
	}); err != nil {
		return err
	}

	byID := make(map[uint64]*routeRel, len(rels))
	for i := range rels {
		byID[rels[i].id] = &rels[i]
	}

	scratch := make(map[uint64]entities.Transport, len(rels))
	for _, r := range rels {
		scratch[r.id] = r.routes
	}

	for pass := 0; pass < 8 && len(scratch) > 0; pass++ {
		next := make(map[uint64]entities.Transport)
		for id, add := range scratch {
			r, ok := byID[id]
			if !ok {
				continue
			}
			if err := applyRouteToWays(ways, r.wayIDs, add, sink); err != nil {
				return err
			}
			for _, childID := range r.relIDs {
				child, ok := byID[childID]
				if !ok {
					continue
				}
				delta := add &^ child.routes
				if delta == 0 {
					continue
				}
				child.routes |= delta
				next[childID] |= delta
			}
		}
		scratch = next
	}
	return nil
}

// applyRouteToWays ORs transports's route-membership properties into
// every named way's props, and where a way otherwise forbids a
// transport the relation grants, logs an override warning and ORs the
// transport into the way's allow bitset too.
func applyRouteToWays(ways *entities.WaysX, wayIDs []uint64, transports entities.Transport, sink *diag.Sink) error {
	for _, wid := range wayIDs {
		idx, ok := ways.Index(wid)
		if !ok {
			continue
		}
		w, err := ways.Lookup(idx, 0)
		if err != nil {
			return err
		}

		changed := false
		for t := entities.Transport(1); t != 0; t <<= 1 {
			if transports&t == 0 {
				continue
			}
			if prop := entities.PropForTransport(t); w.Way.Props&prop == 0 {
				w.Way.Props |= prop
				changed = true
			}
			if w.Way.Allow&t == 0 {
				sink.Emit(diag.Diagnostic{
					Kind: diag.Warning, Entity: diag.EntityWay, OriginalID: wid,
					Template: "route relation grants a transport the way otherwise forbids",
				})
				w.Way.Allow |= t
				changed = true
			}
		}
		if changed {
			if err := ways.PutBack(idx, w, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
