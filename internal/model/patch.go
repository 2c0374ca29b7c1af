package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Opt is a tri-state optional used by patch types: a field can be
// absent (leave the target untouched), set to a value, or explicitly
// null (clear the target back to its zero value). JSON null maps to the
// clear state; a missing key stays absent.
type Opt[T any] struct {
	set  bool
	null bool
	val  T
}

func Set[T any](v T) Opt[T] { return Opt[T]{set: true, val: v} }

func Clear[T any]() Opt[T] { return Opt[T]{set: true, null: true} }

func (o Opt[T]) IsSet() bool { return o.set }

func (o Opt[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and whether a non-null value is present.
func (o Opt[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.val, true
}

// IsZero makes absent Opt fields disappear under the json omitzero tag.
func (o Opt[T]) IsZero() bool { return !o.set }

var nullBytes = []byte("null")

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), nullBytes) {
		*o = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Set(v)
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return nullBytes, nil
	}
	return json.Marshal(o.val)
}

// apply merges one Opt field into its target following shallow-merge
// semantics: absent leaves the target alone, null clears it, a value
// replaces it.
func apply[T any](target *T, o Opt[T]) {
	if !o.set {
		return
	}
	if o.null {
		var zero T
		*target = zero
		return
	}
	*target = o.val
}

// applyPtr is apply for optional (pointer-typed) targets: null resets
// the pointer to nil so the consumer falls back to its default.
func applyPtr[T any](target **T, o Opt[T]) {
	if !o.set {
		return
	}
	if o.null {
		*target = nil
		return
	}
	v := o.val
	*target = &v
}

type CoursePatch struct {
	Name         Opt[string] `json:"name,omitzero"`
	LocationName Opt[string] `json:"location_name,omitzero"`
	LocationAt   Opt[LatLng] `json:"location_at,omitzero"`
}

func (p CoursePatch) ApplyTo(c *Course) {
	apply(&c.Name, p.Name)
	apply(&c.Location.Name, p.LocationName)
	apply(&c.Location.At, p.LocationAt)
}

type HolePatch struct {
	Name   Opt[string] `json:"name,omitzero"`
	Par    Opt[int]    `json:"par,omitzero"`
	Notes  Opt[string] `json:"notes,omitzero"`
	Rules  Opt[string] `json:"rules,omitzero"`
	Center Opt[LatLng] `json:"center,omitzero"`
	Bounds Opt[Bounds] `json:"bounds,omitzero"`
}

func (p HolePatch) ApplyTo(h *Hole) {
	apply(&h.Name, p.Name)
	apply(&h.Par, p.Par)
	apply(&h.Notes, p.Notes)
	apply(&h.Rules, p.Rules)
	applyPtr(&h.Center, p.Center)
	applyPtr(&h.Bounds, p.Bounds)
}

type StylePatch struct {
	TeeColor     Opt[string] `json:"tee_color,omitzero"`
	BasketColor  Opt[string] `json:"basket_color,omitzero"`
	FairwayColor Opt[string] `json:"fairway_color,omitzero"`
	OBColor      Opt[string] `json:"ob_color,omitzero"`
	PathColor    Opt[string] `json:"path_color,omitzero"`

	FairwayOpacity Opt[float64] `json:"fairway_opacity,omitzero"`
	OBOpacity      Opt[float64] `json:"ob_opacity,omitzero"`
	TerrainOpacity Opt[float64] `json:"terrain_opacity,omitzero"`
	LineWidth      Opt[float64] `json:"line_width,omitzero"`
	OBLineWidth    Opt[float64] `json:"ob_line_width,omitzero"`

	DefaultBackground Opt[TerrainType] `json:"default_background,omitzero"`
	Theme             Opt[string]      `json:"theme,omitzero"`
	CustomBackground  Opt[string]      `json:"custom_background,omitzero"`
}

func (p StylePatch) ApplyTo(s *Style) {
	apply(&s.TeeColor, p.TeeColor)
	apply(&s.BasketColor, p.BasketColor)
	apply(&s.FairwayColor, p.FairwayColor)
	apply(&s.OBColor, p.OBColor)
	apply(&s.PathColor, p.PathColor)
	applyPtr(&s.FairwayOpacity, p.FairwayOpacity)
	applyPtr(&s.OBOpacity, p.OBOpacity)
	applyPtr(&s.TerrainOpacity, p.TerrainOpacity)
	applyPtr(&s.LineWidth, p.LineWidth)
	applyPtr(&s.OBLineWidth, p.OBLineWidth)
	apply(&s.DefaultBackground, p.DefaultBackground)
	apply(&s.Theme, p.Theme)
	apply(&s.CustomBackground, p.CustomBackground)
}

type LayoutPatch struct {
	Name  Opt[string]       `json:"name,omitzero"`
	Holes Opt[[]LayoutHole] `json:"holes,omitzero"`
}

func (p LayoutPatch) ApplyTo(l *Layout) {
	apply(&l.Name, p.Name)
	if p.Holes.IsSet() {
		if v, ok := p.Holes.Get(); ok {
			l.Holes = v
		} else {
			l.Holes = nil
		}
	}
}

type TeePatch struct {
	Name     Opt[string]  `json:"name,omitzero"`
	Rotation Opt[float64] `json:"rotation,omitzero"`
}

type BasketPatch struct {
	Name Opt[string] `json:"name,omitzero"`
}

type DropzonePatch struct {
	Rotation Opt[float64] `json:"rotation,omitzero"`
}

type DropzoneAreaPatch struct {
	FairwaySide Opt[FairwaySide] `json:"fairway_side,omitzero"`
}

type MandatoryPatch struct {
	ArrowRotation Opt[float64] `json:"arrow_rotation,omitzero"`
	LineRotation  Opt[float64] `json:"line_rotation,omitzero"`
	LineLengthM   Opt[float64] `json:"line_length_m,omitzero"`
}

type FlightLinePatch struct {
	Width Opt[float64] `json:"width,omitzero"`
}

type OBZonePatch struct {
	Opacity Opt[float64] `json:"opacity,omitzero"`
}

type OBLinePatch struct {
	FairwaySide Opt[FairwaySide] `json:"fairway_side,omitzero"`
}

type FairwayPatch struct {
	Opacity Opt[float64] `json:"opacity,omitzero"`
}

type AnnotationPatch struct {
	Text     Opt[string]  `json:"text,omitzero"`
	FontSize Opt[float64] `json:"font_size,omitzero"`
	Bold     Opt[bool]    `json:"bold,omitzero"`
}

type InfrastructurePatch struct {
	TerrainType Opt[TerrainType] `json:"terrain_type,omitzero"`
}

// FeaturePatch carries partial updates for a hole feature. At most one
// variant patch may be set and it must match the feature's type; the
// discriminant itself is immutable.
type FeaturePatch struct {
	Label Opt[string] `json:"label,omitzero"`
	Color Opt[string] `json:"color,omitzero"`
	Notes Opt[string] `json:"notes,omitzero"`

	Tee            *TeePatch            `json:"tee,omitempty"`
	Basket         *BasketPatch         `json:"basket,omitempty"`
	Dropzone       *DropzonePatch       `json:"dropzone,omitempty"`
	DropzoneArea   *DropzoneAreaPatch   `json:"dropzone_area,omitempty"`
	Mandatory      *MandatoryPatch      `json:"mandatory,omitempty"`
	FlightLine     *FlightLinePatch     `json:"flight_line,omitempty"`
	OBZone         *OBZonePatch         `json:"ob_zone,omitempty"`
	OBLine         *OBLinePatch         `json:"ob_line,omitempty"`
	Fairway        *FairwayPatch        `json:"fairway,omitempty"`
	Annotation     *AnnotationPatch     `json:"annotation,omitempty"`
	Infrastructure *InfrastructurePatch `json:"infrastructure,omitempty"`
}

func (p FeaturePatch) variantType() (FeatureType, bool) {
	switch {
	case p.Tee != nil:
		return FeatureTee, true
	case p.Basket != nil:
		return FeatureBasket, true
	case p.Dropzone != nil:
		return FeatureDropzone, true
	case p.DropzoneArea != nil:
		return FeatureDropzoneArea, true
	case p.Mandatory != nil:
		return FeatureMandatory, true
	case p.FlightLine != nil:
		return FeatureFlightLine, true
	case p.OBZone != nil:
		return FeatureOBZone, true
	case p.OBLine != nil:
		return FeatureOBLine, true
	case p.Fairway != nil:
		return FeatureFairway, true
	case p.Annotation != nil:
		return FeatureAnnotation, true
	case p.Infrastructure != nil:
		return FeatureInfrastructure, true
	default:
		return "", false
	}
}

// ApplyTo merges the patch into f. It fails when the variant patch does
// not match the feature's type; common fields are merged regardless.
func (p FeaturePatch) ApplyTo(f *Feature) error {
	if vt, ok := p.variantType(); ok && vt != f.Type {
		return fmt.Errorf("patch carries %s props for a %s feature", vt, f.Type)
	}
	apply(&f.Label, p.Label)
	apply(&f.Color, p.Color)
	apply(&f.Notes, p.Notes)

	switch f.Type {
	case FeatureTee:
		if p.Tee != nil {
			apply(&f.Tee.Name, p.Tee.Name)
			apply(&f.Tee.Rotation, p.Tee.Rotation)
		}
	case FeatureBasket:
		if p.Basket != nil {
			apply(&f.Basket.Name, p.Basket.Name)
		}
	case FeatureDropzone:
		if p.Dropzone != nil {
			apply(&f.Dropzone.Rotation, p.Dropzone.Rotation)
		}
	case FeatureDropzoneArea:
		if p.DropzoneArea != nil {
			apply(&f.DropzoneArea.FairwaySide, p.DropzoneArea.FairwaySide)
		}
	case FeatureMandatory:
		if p.Mandatory != nil {
			apply(&f.Mandatory.ArrowRotation, p.Mandatory.ArrowRotation)
			apply(&f.Mandatory.LineRotation, p.Mandatory.LineRotation)
			apply(&f.Mandatory.LineLengthM, p.Mandatory.LineLengthM)
		}
	case FeatureFlightLine:
		if p.FlightLine != nil {
			apply(&f.FlightLine.Width, p.FlightLine.Width)
		}
	case FeatureOBZone:
		if p.OBZone != nil {
			applyPtr(&f.OBZone.Opacity, p.OBZone.Opacity)
		}
	case FeatureOBLine:
		if p.OBLine != nil {
			apply(&f.OBLine.FairwaySide, p.OBLine.FairwaySide)
		}
	case FeatureFairway:
		if p.Fairway != nil {
			applyPtr(&f.Fairway.Opacity, p.Fairway.Opacity)
		}
	case FeatureAnnotation:
		if p.Annotation != nil {
			apply(&f.Annotation.Text, p.Annotation.Text)
			apply(&f.Annotation.FontSize, p.Annotation.FontSize)
			apply(&f.Annotation.Bold, p.Annotation.Bold)
		}
	case FeatureInfrastructure:
		if p.Infrastructure != nil {
			apply(&f.Infrastructure.TerrainType, p.Infrastructure.TerrainType)
		}
	}
	return nil
}

type TerrainPatch struct {
	TerrainType  Opt[TerrainType] `json:"terrain_type,omitzero"`
	Color        Opt[string]      `json:"color,omitzero"`
	Opacity      Opt[float64]     `json:"opacity,omitzero"`
	CornerRadius Opt[float64]     `json:"corner_radius,omitzero"`
}

func (p TerrainPatch) ApplyTo(t *TerrainFeature) {
	apply(&t.TerrainType, p.TerrainType)
	apply(&t.Color, p.Color)
	applyPtr(&t.Opacity, p.Opacity)
	applyPtr(&t.CornerRadius, p.CornerRadius)
}

type PathPatch struct {
	Color   Opt[string]  `json:"color,omitzero"`
	Width   Opt[float64] `json:"width,omitzero"`
	Opacity Opt[float64] `json:"opacity,omitzero"`
}

func (p PathPatch) ApplyTo(t *PathFeature) {
	apply(&t.Color, p.Color)
	applyPtr(&t.Width, p.Width)
	applyPtr(&t.Opacity, p.Opacity)
}

type TreePatch struct {
	TreeType Opt[TreeType] `json:"tree_type,omitzero"`
	Size     Opt[float64]  `json:"size,omitzero"`
	Rotation Opt[float64]  `json:"rotation,omitzero"`
	Opacity  Opt[float64]  `json:"opacity,omitzero"`
}

func (p TreePatch) ApplyTo(t *TreeFeature) {
	apply(&t.TreeType, p.TreeType)
	apply(&t.Size, p.Size)
	apply(&t.Rotation, p.Rotation)
	applyPtr(&t.Opacity, p.Opacity)
}
