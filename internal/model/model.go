// Package model defines the course document tree: the single source of
// truth mutated by the editor and snapshotted by the undo history.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on newly created courses. Persisted style
// records from older schemas are migrated on load (see MergeStyleDefaults).
const SchemaVersion = 3

type Location struct {
	Name string `json:"name,omitempty"`
	At   LatLng `json:"at"`
}

// LayoutHole selects one hole (by id) and optionally a specific tee for
// a tournament layout variant.
type LayoutHole struct {
	HoleID       string `json:"hole_id"`
	TeeFeatureID string `json:"tee_feature_id,omitempty"`
}

type Layout struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Holes     []LayoutHole `json:"holes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Style holds course-wide visual defaults applied when a feature does
// not carry an override. Numeric fields are pointers so an unset field
// can be told apart from an explicit zero when merging over defaults.
type Style struct {
	TeeColor     string `json:"tee_color,omitempty"`
	BasketColor  string `json:"basket_color,omitempty"`
	FairwayColor string `json:"fairway_color,omitempty"`
	OBColor      string `json:"ob_color,omitempty"`
	PathColor    string `json:"path_color,omitempty"`

	FairwayOpacity *float64 `json:"fairway_opacity,omitempty"`
	OBOpacity      *float64 `json:"ob_opacity,omitempty"`
	TerrainOpacity *float64 `json:"terrain_opacity,omitempty"`
	LineWidth      *float64 `json:"line_width,omitempty"`
	OBLineWidth    *float64 `json:"ob_line_width,omitempty"`

	DefaultBackground TerrainType `json:"default_background,omitempty"`
	Theme             string      `json:"theme,omitempty"`
	CustomBackground  string      `json:"custom_background,omitempty"`
}

func f64(v float64) *float64 { return &v }

func DefaultStyle() Style {
	return Style{
		TeeColor:          "#2d6cdf",
		BasketColor:       "#e8590c",
		FairwayColor:      "#74b816",
		OBColor:           "#e03131",
		PathColor:         "#868e96",
		FairwayOpacity:    f64(0.35),
		OBOpacity:         f64(0.4),
		TerrainOpacity:    f64(0.6),
		LineWidth:         f64(2),
		OBLineWidth:       f64(3),
		DefaultBackground: TerrainGrass,
	}
}

// MergeStyleDefaults layers a stored style over the current defaults so
// documents saved under an older schema gain new default fields without
// losing their overrides. This is the one-way migration applied on load.
func MergeStyleDefaults(stored Style) Style {
	out := DefaultStyle()
	if stored.TeeColor != "" {
		out.TeeColor = stored.TeeColor
	}
	if stored.BasketColor != "" {
		out.BasketColor = stored.BasketColor
	}
	if stored.FairwayColor != "" {
		out.FairwayColor = stored.FairwayColor
	}
	if stored.OBColor != "" {
		out.OBColor = stored.OBColor
	}
	if stored.PathColor != "" {
		out.PathColor = stored.PathColor
	}
	if stored.FairwayOpacity != nil {
		out.FairwayOpacity = stored.FairwayOpacity
	}
	if stored.OBOpacity != nil {
		out.OBOpacity = stored.OBOpacity
	}
	if stored.TerrainOpacity != nil {
		out.TerrainOpacity = stored.TerrainOpacity
	}
	if stored.LineWidth != nil {
		out.LineWidth = stored.LineWidth
	}
	if stored.OBLineWidth != nil {
		out.OBLineWidth = stored.OBLineWidth
	}
	if stored.DefaultBackground != "" {
		out.DefaultBackground = stored.DefaultBackground
	}
	if stored.Theme != "" {
		out.Theme = stored.Theme
	}
	if stored.CustomBackground != "" {
		out.CustomBackground = stored.CustomBackground
	}
	return out
}

type Hole struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name,omitempty"`
	Par    int    `json:"par"`

	Features []Feature `json:"features"`

	Notes string `json:"notes,omitempty"`
	Rules string `json:"rules,omitempty"`

	Center  *LatLng `json:"center,omitempty"`
	Bounds  *Bounds `json:"bounds,omitempty"`
	LengthM float64 `json:"length_m,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshDerived recomputes the cached presentation fields of the hole
// from its feature geometries: Center is the mean of the feature
// centroids, Bounds the union of the feature bounding boxes and LengthM
// the flight-line length, falling back to the tee-to-basket distance.
// A hole with no located features drops the caches rather than keeping
// stale values.
func (h *Hole) RefreshDerived() {
	var (
		agg    *Bounds
		sum    LatLng
		n      int
		tee    *LatLng
		basket *LatLng
		lineM  float64
	)
	for i := range h.Features {
		f := &h.Features[i]
		if ct, ok := f.Geometry.Centroid(); ok {
			sum.Lat += ct.Lat
			sum.Lng += ct.Lng
			n++
		}
		if b, ok := f.Geometry.BoundingBox(); ok {
			if agg == nil {
				agg = &b
			} else {
				u := agg.Union(b)
				agg = &u
			}
		}
		switch f.Type {
		case FeatureFlightLine:
			if lineM == 0 {
				lineM = f.Geometry.LengthMeters()
			}
		case FeatureTee:
			if tee == nil {
				tee = f.Geometry.Point
			}
		case FeatureBasket:
			if basket == nil {
				basket = f.Geometry.Point
			}
		}
	}
	if n == 0 {
		h.Center, h.Bounds, h.LengthM = nil, nil, 0
		return
	}
	h.Center = &LatLng{Lat: sum.Lat / float64(n), Lng: sum.Lng / float64(n)}
	h.Bounds = agg
	switch {
	case lineM > 0:
		h.LengthM = lineM
	case tee != nil && basket != nil:
		h.LengthM = HaversineMeters(*tee, *basket)
	default:
		h.LengthM = 0
	}
}

// Course is the top-level document aggregate.
type Course struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`

	Holes      []Hole `json:"holes"`
	TotalHoles int    `json:"total_holes"`

	Style          Style    `json:"style"`
	Layouts        []Layout `json:"layouts,omitempty"`
	ActiveLayoutID string   `json:"active_layout_id,omitempty"`

	Terrain []TerrainFeature `json:"terrain,omitempty"`
	Paths   []PathFeature    `json:"paths,omitempty"`
	Trees   []TreeFeature    `json:"trees,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func NewID() string { return uuid.NewString() }

// NewCourse builds a course seeded with one empty par-3 hole and the
// default style.
func NewCourse(name string, loc Location) *Course {
	now := time.Now().UTC()
	return &Course{
		ID:       NewID(),
		Name:     name,
		Location: loc,
		Holes: []Hole{{
			ID:        NewID(),
			Number:    1,
			Par:       3,
			Features:  []Feature{},
			CreatedAt: now,
			UpdatedAt: now,
		}},
		TotalHoles: 1,
		Style:      DefaultStyle(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    SchemaVersion,
	}
}

// FindHole returns the hole with the given id, or nil.
func (c *Course) FindHole(holeID string) *Hole {
	for i := range c.Holes {
		if c.Holes[i].ID == holeID {
			return &c.Holes[i]
		}
	}
	return nil
}

// FindLayout returns the layout with the given id, or nil.
func (c *Course) FindLayout(layoutID string) *Layout {
	for i := range c.Layouts {
		if c.Layouts[i].ID == layoutID {
			return &c.Layouts[i]
		}
	}
	return nil
}

// FeatureIDInUse reports whether id is already taken anywhere in the
// course: hole features and the course-level terrain/path/tree
// collections share one id namespace.
func (c *Course) FeatureIDInUse(id string) bool {
	for hi := range c.Holes {
		for fi := range c.Holes[hi].Features {
			if c.Holes[hi].Features[fi].ID == id {
				return true
			}
		}
	}
	for i := range c.Terrain {
		if c.Terrain[i].ID == id {
			return true
		}
	}
	for i := range c.Paths {
		if c.Paths[i].ID == id {
			return true
		}
	}
	for i := range c.Trees {
		if c.Trees[i].ID == id {
			return true
		}
	}
	return false
}

// Renumber rewrites hole numbers to the contiguous sequence 1..N in
// current list order and refreshes the denormalized TotalHoles count.
func (c *Course) Renumber() {
	for i := range c.Holes {
		c.Holes[i].Number = i + 1
	}
	c.TotalHoles = len(c.Holes)
}
