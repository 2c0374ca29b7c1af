// Package exchange reads and writes standalone course files: one JSON
// document equal in shape to a stored course.
package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairwaylab/coursemapper/internal/model"
)

// ErrUnreadable wraps a JSON parse failure; ErrInvalidDocument wraps a
// shape-validation failure with a user-facing reason.
var (
	ErrUnreadable      = errors.New("could not read course file")
	ErrInvalidDocument = errors.New("invalid course file")
)

// Import parses a course file, validates its top-level shape and
// rebuilds it as a brand-new course: fresh course/hole/feature ids
// (with hole back-references kept consistent), fresh timestamps,
// contiguous hole numbers, recomputed hole caches and migrated style.
// Feature variants are not
// deep-validated; unknown detail survives as-is.
func Import(data []byte) (*model.Course, error) {
	var c model.Course
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: missing course name", ErrInvalidDocument)
	}
	if c.Holes == nil {
		return nil, fmt.Errorf("%w: missing holes list", ErrInvalidDocument)
	}

	now := time.Now().UTC()
	c.ID = model.NewID()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Version = model.SchemaVersion
	c.Style = model.MergeStyleDefaults(c.Style)

	// Re-id everything so the import can never collide with an existing
	// course; remember feature renames so layout tee references follow.
	featureIDs := make(map[string]string)
	holeIDs := make(map[string]string)

	for hi := range c.Holes {
		h := &c.Holes[hi]
		newHoleID := model.NewID()
		if h.ID != "" {
			holeIDs[h.ID] = newHoleID
		}
		h.ID = newHoleID
		h.CreatedAt = now
		h.UpdatedAt = now
		if h.Features == nil {
			h.Features = []model.Feature{}
		}
		for fi := range h.Features {
			f := &h.Features[fi]
			newID := model.NewID()
			if f.ID != "" {
				featureIDs[f.ID] = newID
			}
			f.ID = newID
			f.HoleID = h.ID
			f.CreatedAt = now
			f.UpdatedAt = now
		}
		// Foreign files may carry stale or missing caches.
		h.RefreshDerived()
	}
	for i := range c.Terrain {
		c.Terrain[i].ID = model.NewID()
		c.Terrain[i].CreatedAt = now
		c.Terrain[i].UpdatedAt = now
	}
	for i := range c.Paths {
		c.Paths[i].ID = model.NewID()
		c.Paths[i].CreatedAt = now
		c.Paths[i].UpdatedAt = now
	}
	for i := range c.Trees {
		c.Trees[i].ID = model.NewID()
		c.Trees[i].CreatedAt = now
		c.Trees[i].UpdatedAt = now
	}

	for li := range c.Layouts {
		l := &c.Layouts[li]
		l.ID = model.NewID()
		l.CreatedAt = now
		l.UpdatedAt = now
		kept := l.Holes[:0]
		for _, lh := range l.Holes {
			mapped, ok := holeIDs[lh.HoleID]
			if !ok {
				continue // dangling layout entry, drop it
			}
			lh.HoleID = mapped
			if lh.TeeFeatureID != "" {
				lh.TeeFeatureID = featureIDs[lh.TeeFeatureID]
			}
			kept = append(kept, lh)
		}
		l.Holes = kept
	}
	// The active-layout reference pointed at an old layout id.
	c.ActiveLayoutID = ""

	c.Renumber()
	return &c, nil
}

// Export serializes a course for download, indented for humans.
func Export(c *model.Course) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil course")
	}
	body, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode course %s: %w", c.ID, err)
	}
	return body, nil
}
