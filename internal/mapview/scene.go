package mapview

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
)

type Marker struct {
	Label    string
	Position geo.Point
}

// Viewport is the bounding box the map fits to.
type Viewport struct {
	SouthWest geo.Point
	NorthEast geo.Point
}

// Scene is one fully built map state: two markers, an optional routed
// polyline and the viewport fitted around whatever is shown. A scene is
// immutable — when either endpoint moves, the caller builds a new one.
type Scene struct {
	Markers  []Marker
	Route    []geo.Point
	Viewport Viewport
}

// Router requests a routed polyline from the routing service.
type Router interface {
	Route(ctx context.Context, start, end geo.Point) ([]geo.Point, error)
}

type Builder struct {
	router Router
	logger *zap.Logger
}

func NewBuilder(router Router, logger *zap.Logger) *Builder {
	return &Builder{router: router, logger: logger}
}

// BuildScene places the shipper and delivery markers and tries to draw the
// route between them. Routing failure degrades to markers without a line;
// it is not an error.
func (b *Builder) BuildScene(ctx context.Context, start, end geo.Point) *Scene {
	scene := &Scene{
		Markers: []Marker{
			{Label: "shipper", Position: start},
			{Label: "delivery", Position: end},
		},
	}

	path, err := b.router.Route(ctx, start, end)
	if err != nil {
		b.logger.Warn("Routing failed, rendering markers only", zap.Error(err))
		scene.Viewport = fitViewport([]geo.Point{start, end})
		return scene
	}

	scene.Route = path
	scene.Viewport = fitViewport(append([]geo.Point{start, end}, path...))
	return scene
}

func fitViewport(points []geo.Point) Viewport {
	vp := Viewport{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		if p.Lat < vp.SouthWest.Lat {
			vp.SouthWest.Lat = p.Lat
		}
		if p.Lng < vp.SouthWest.Lng {
			vp.SouthWest.Lng = p.Lng
		}
		if p.Lat > vp.NorthEast.Lat {
			vp.NorthEast.Lat = p.Lat
		}
		if p.Lng > vp.NorthEast.Lng {
			vp.NorthEast.Lng = p.Lng
		}
	}
	return vp
}

// GeoJSON renders the scene as a FeatureCollection, the console stand-in for
// drawing on a map widget.
func (s *Scene) GeoJSON() ([]byte, error) {
	features := make([]map[string]any, 0, len(s.Markers)+1)
	for _, marker := range s.Markers {
		features = append(features, map[string]any{
			"type":       "Feature",
			"properties": map[string]any{"name": marker.Label},
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{marker.Position.Lng, marker.Position.Lat},
			},
		})
	}

	if len(s.Route) > 0 {
		coordinates := make([][]float64, len(s.Route))
		for i, p := range s.Route {
			coordinates[i] = []float64{p.Lng, p.Lat}
		}
		features = append(features, map[string]any{
			"type":       "Feature",
			"properties": map[string]any{"name": "route"},
			"geometry": map[string]any{
				"type":        "LineString",
				"coordinates": coordinates,
			},
		})
	}

	doc := map[string]any{
		"type": "FeatureCollection",
		"bbox": []float64{
			s.Viewport.SouthWest.Lng, s.Viewport.SouthWest.Lat,
			s.Viewport.NorthEast.Lng, s.Viewport.NorthEast.Lat,
		},
		"features": features,
	}
	return json.MarshalIndent(doc, "", "  ")
}
