package graphcore

import (
	"github.com/ogrid/graphcore/internal/entities"
	"github.com/ogrid/graphcore/internal/segment"
	"github.com/ogrid/graphcore/pkg/osm"
)

// sink adapts a Pipeline's extended-entity stores to the pkg/osm.Sink
// callback surface a parser drives the core with (§6). It is the only
// thing a parser touches; everything else is internal pipeline state.
type sink struct {
	p *Pipeline
}

func (s sink) AppendNode(id uint64, lat, lon float64, allow uint8) error {
	return s.p.nodes.Append(entities.NodeX{
		ID:    id,
		Allow: entities.Transport(allow),
		Lat:   osm.ToFixed(lat),
		Lon:   osm.ToFixed(lon),
	})
}

func (s sink) AppendWay(id uint64, tags osm.WayTags, nodes []uint64) error {
	nameOff, err := s.p.ways.Names.Intern(tags.Name)
	if err != nil {
		return err
	}
	way := entities.Way{
		Name:    nameOff,
		Type:    entities.WayType(tags.Type),
		Allow:   entities.Transport(tags.Allow),
		Props:   entities.WayProps(tags.Props),
		Speed:   tags.Speed,
		Weight:  tags.Weight,
		Height:  tags.Height,
		Width:   tags.Width,
		Length:  tags.Length,
		Incline: tags.Incline,
	}
	if err := s.p.ways.Append(entities.WayX{ID: id, Way: way}); err != nil {
		return err
	}
	return s.p.wayRefs.Append(segment.WayRefs{WayID: id, Nodes: nodes})
}

func (s sink) AppendRelation(id uint64, data osm.RelationData, members osm.Members) error {
	switch data.Kind {
	case osm.RelationRoute:
		return s.p.routeRels.Append(entities.RouteRelX{
			ID:        id,
			Routes:    entities.Transport(data.Routes),
			Nodes:     members.Nodes,
			Ways:      members.Ways,
			Relations: members.Relations,
		})
	case osm.RelationTurnRestriction:
		return s.p.rawTurnRels.Append(entities.TurnRelX{
			ID:          id,
			From:        data.From,
			Via:         data.Via,
			To:          data.To,
			Restriction: entities.TurnRestriction(data.Restriction),
			Except:      entities.Transport(data.Except),
		})
	default:
		return nil
	}
}
