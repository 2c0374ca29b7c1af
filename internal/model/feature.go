package model

import (
	"fmt"
	"strings"
	"time"
)

type FeatureType string

const (
	FeatureTee            FeatureType = "tee"
	FeatureBasket         FeatureType = "basket"
	FeatureDropzone       FeatureType = "dropzone"
	FeatureDropzoneArea   FeatureType = "dropzone_area"
	FeatureMandatory      FeatureType = "mandatory"
	FeatureFlightLine     FeatureType = "flight_line"
	FeatureOBZone         FeatureType = "ob_zone"
	FeatureOBLine         FeatureType = "ob_line"
	FeatureFairway        FeatureType = "fairway"
	FeatureAnnotation     FeatureType = "annotation"
	FeatureInfrastructure FeatureType = "infrastructure"
)

// FairwaySide tells which side of an OB line or dropzone-area boundary
// counts as in-bounds.
type FairwaySide string

const (
	FairwayLeft  FairwaySide = "left"
	FairwayRight FairwaySide = "right"
)

type TerrainType string

const (
	TerrainGrass   TerrainType = "grass"
	TerrainForest  TerrainType = "forest"
	TerrainWater   TerrainType = "water"
	TerrainSand    TerrainType = "sand"
	TerrainGravel  TerrainType = "gravel"
	TerrainAsphalt TerrainType = "asphalt"
)

type TreeType string

const (
	TreeDeciduous TreeType = "deciduous"
	TreeConifer   TreeType = "conifer"
	TreeBush      TreeType = "bush"
)

type TeeProps struct {
	Name     string  `json:"name,omitempty"`
	Rotation float64 `json:"rotation"`
}

type BasketProps struct {
	Name string `json:"name,omitempty"`
}

type DropzoneProps struct {
	Rotation float64 `json:"rotation"`
}

type DropzoneAreaProps struct {
	FairwaySide FairwaySide `json:"fairway_side"`
}

type MandatoryProps struct {
	ArrowRotation float64 `json:"arrow_rotation"`
	LineRotation  float64 `json:"line_rotation"`
	LineLengthM   float64 `json:"line_length_m"`
}

type FlightLineProps struct {
	Width float64 `json:"width,omitempty"`
}

type OBZoneProps struct {
	Opacity *float64 `json:"opacity,omitempty"`
}

type OBLineProps struct {
	FairwaySide FairwaySide `json:"fairway_side"`
}

type FairwayProps struct {
	Opacity *float64 `json:"opacity,omitempty"`
}

type AnnotationProps struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
}

type InfrastructureProps struct {
	TerrainType TerrainType `json:"terrain_type"`
}

// Feature is a hole-scoped map element. Type is the discriminant and
// exactly one variant pointer below must be non-nil; the rest stay nil
// so variant fields cannot leak across types.
type Feature struct {
	ID       string      `json:"id"`
	HoleID   string      `json:"hole_id"`
	Type     FeatureType `json:"type"`
	Geometry Geometry    `json:"geometry"`

	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
	Notes string `json:"notes,omitempty"`

	Tee            *TeeProps            `json:"tee,omitempty"`
	Basket         *BasketProps         `json:"basket,omitempty"`
	Dropzone       *DropzoneProps       `json:"dropzone,omitempty"`
	DropzoneArea   *DropzoneAreaProps   `json:"dropzone_area,omitempty"`
	Mandatory      *MandatoryProps      `json:"mandatory,omitempty"`
	FlightLine     *FlightLineProps     `json:"flight_line,omitempty"`
	OBZone         *OBZoneProps         `json:"ob_zone,omitempty"`
	OBLine         *OBLineProps         `json:"ob_line,omitempty"`
	Fairway        *FairwayProps        `json:"fairway,omitempty"`
	Annotation     *AnnotationProps     `json:"annotation,omitempty"`
	Infrastructure *InfrastructureProps `json:"infrastructure,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// geometryKindFor maps each feature type to the geometry it must carry.
func geometryKindFor(t FeatureType) (GeometryType, bool) {
	switch t {
	case FeatureTee, FeatureBasket, FeatureDropzone, FeatureMandatory, FeatureAnnotation:
		return GeometryPoint, true
	case FeatureFlightLine, FeatureOBLine:
		return GeometryLine, true
	case FeatureDropzoneArea, FeatureOBZone, FeatureFairway, FeatureInfrastructure:
		return GeometryPolygon, true
	default:
		return "", false
	}
}

func (f Feature) variants() map[FeatureType]bool {
	return map[FeatureType]bool{
		FeatureTee:            f.Tee != nil,
		FeatureBasket:         f.Basket != nil,
		FeatureDropzone:       f.Dropzone != nil,
		FeatureDropzoneArea:   f.DropzoneArea != nil,
		FeatureMandatory:      f.Mandatory != nil,
		FeatureFlightLine:     f.FlightLine != nil,
		FeatureOBZone:         f.OBZone != nil,
		FeatureOBLine:         f.OBLine != nil,
		FeatureFairway:        f.Fairway != nil,
		FeatureAnnotation:     f.Annotation != nil,
		FeatureInfrastructure: f.Infrastructure != nil,
	}
}

// Validate checks the union invariant: the discriminant names a known
// variant, exactly the matching props pointer is set, and the geometry
// kind fits the feature type.
func (f Feature) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("feature id is required")
	}
	wantGeom, known := geometryKindFor(f.Type)
	if !known {
		return fmt.Errorf("unknown feature type %q", f.Type)
	}
	for t, set := range f.variants() {
		if t == f.Type && !set {
			return fmt.Errorf("feature %s: missing %s props", f.ID, t)
		}
		if t != f.Type && set {
			return fmt.Errorf("feature %s: %s props set on a %s feature", f.ID, t, f.Type)
		}
	}
	if err := f.Geometry.Validate(); err != nil {
		return fmt.Errorf("feature %s: %w", f.ID, err)
	}
	if f.Geometry.Type != wantGeom {
		return fmt.Errorf("feature %s: %s feature needs %s geometry, got %s",
			f.ID, f.Type, wantGeom, f.Geometry.Type)
	}
	return nil
}

// TerrainFeature is a course-level terrain polygon, visible regardless
// of which hole is active.
type TerrainFeature struct {
	ID           string      `json:"id"`
	Geometry     Geometry    `json:"geometry"`
	TerrainType  TerrainType `json:"terrain_type"`
	Color        string      `json:"color,omitempty"`
	Opacity      *float64    `json:"opacity,omitempty"`
	CornerRadius *float64    `json:"corner_radius,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (t TerrainFeature) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("terrain feature id is required")
	}
	if err := t.Geometry.Validate(); err != nil {
		return fmt.Errorf("terrain %s: %w", t.ID, err)
	}
	if t.Geometry.Type != GeometryPolygon {
		return fmt.Errorf("terrain %s: needs polygon geometry, got %s", t.ID, t.Geometry.Type)
	}
	return nil
}

// PathFeature is a course-level walking path line.
type PathFeature struct {
	ID        string    `json:"id"`
	Geometry  Geometry  `json:"geometry"`
	Color     string    `json:"color,omitempty"`
	Width     *float64  `json:"width,omitempty"`
	Opacity   *float64  `json:"opacity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p PathFeature) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("path feature id is required")
	}
	if err := p.Geometry.Validate(); err != nil {
		return fmt.Errorf("path %s: %w", p.ID, err)
	}
	if p.Geometry.Type != GeometryLine {
		return fmt.Errorf("path %s: needs line geometry, got %s", p.ID, p.Geometry.Type)
	}
	return nil
}

// TreeFeature is a course-level tree point.
type TreeFeature struct {
	ID        string    `json:"id"`
	Geometry  Geometry  `json:"geometry"`
	TreeType  TreeType  `json:"tree_type"`
	Size      float64   `json:"size,omitempty"`
	Rotation  float64   `json:"rotation,omitempty"`
	Opacity   *float64  `json:"opacity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t TreeFeature) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("tree feature id is required")
	}
	if err := t.Geometry.Validate(); err != nil {
		return fmt.Errorf("tree %s: %w", t.ID, err)
	}
	if t.Geometry.Type != GeometryPoint {
		return fmt.Errorf("tree %s: needs point geometry, got %s", t.ID, t.Geometry.Type)
	}
	return nil
}
