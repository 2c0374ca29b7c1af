package model

import (
	"errors"
	"fmt"
	"math"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Union returns the smallest bounds covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLng: math.Min(b.MinLng, o.MinLng),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLng: math.Max(b.MaxLng, o.MaxLng),
	}
}

type GeometryType string

const (
	GeometryPoint   GeometryType = "point"
	GeometryLine    GeometryType = "line"
	GeometryPolygon GeometryType = "polygon"
)

// Geometry is a tagged union: exactly the payload matching Type is set.
// Polygon rings follow the GeoJSON convention (outer ring first).
type Geometry struct {
	Type    GeometryType `json:"type"`
	Point   *LatLng      `json:"point,omitempty"`
	Line    []LatLng     `json:"line,omitempty"`
	Polygon [][]LatLng   `json:"polygon,omitempty"`
}

func PointGeometry(p LatLng) Geometry {
	return Geometry{Type: GeometryPoint, Point: &p}
}

func LineGeometry(pts ...LatLng) Geometry {
	return Geometry{Type: GeometryLine, Line: pts}
}

func PolygonGeometry(rings ...[]LatLng) Geometry {
	return Geometry{Type: GeometryPolygon, Polygon: rings}
}

func (g Geometry) Validate() error {
	switch g.Type {
	case GeometryPoint:
		if g.Point == nil || g.Line != nil || g.Polygon != nil {
			return errors.New("point geometry must carry exactly a point payload")
		}
	case GeometryLine:
		if g.Line == nil || g.Point != nil || g.Polygon != nil {
			return errors.New("line geometry must carry exactly a line payload")
		}
		if len(g.Line) < 2 {
			return fmt.Errorf("line has %d vertices (need >= 2)", len(g.Line))
		}
	case GeometryPolygon:
		if g.Polygon == nil || g.Point != nil || g.Line != nil {
			return errors.New("polygon geometry must carry exactly a polygon payload")
		}
		if len(g.Polygon) == 0 {
			return errors.New("polygon has no rings")
		}
		for i, ring := range g.Polygon {
			if len(ring) < 3 {
				return fmt.Errorf("polygon ring %d has %d vertices (need >= 3)", i, len(ring))
			}
		}
	default:
		return fmt.Errorf("unknown geometry type %q", g.Type)
	}
	return nil
}

const earthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// LengthMeters sums the segment distances of a line geometry.
// Returns 0 for non-line geometries.
func (g Geometry) LengthMeters() float64 {
	if g.Type != GeometryLine || len(g.Line) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(g.Line); i++ {
		total += HaversineMeters(g.Line[i-1], g.Line[i])
	}
	return total
}

// Centroid returns the arithmetic mean of the geometry's vertices
// (outer ring only for polygons). ok is false for empty geometries.
func (g Geometry) Centroid() (center LatLng, ok bool) {
	pts := g.vertices()
	if len(pts) == 0 {
		return LatLng{}, false
	}
	var lat, lng float64
	for _, p := range pts {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(pts))
	return LatLng{Lat: lat / n, Lng: lng / n}, true
}

// BoundingBox returns the axis-aligned bounds of the geometry's vertices.
func (g Geometry) BoundingBox() (Bounds, bool) {
	pts := g.vertices()
	if len(pts) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinLat: pts[0].Lat, MaxLat: pts[0].Lat,
		MinLng: pts[0].Lng, MaxLng: pts[0].Lng,
	}
	for _, p := range pts[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b, true
}

func (g Geometry) vertices() []LatLng {
	switch g.Type {
	case GeometryPoint:
		if g.Point == nil {
			return nil
		}
		return []LatLng{*g.Point}
	case GeometryLine:
		return g.Line
	case GeometryPolygon:
		if len(g.Polygon) == 0 {
			return nil
		}
		return g.Polygon[0]
	default:
		return nil
	}
}
