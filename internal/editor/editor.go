// Package editor applies validated edits to course documents and keeps
// derived fields (hole numbers, totals, timestamps) consistent.
//
// Every operation resolves its target by id chain and reports a missing
// link as ErrNotFound instead of mutating anything. Callers that prefer
// the tolerate-stale-references behavior can simply ignore that error;
// the layer itself never panics.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/observability"
	"github.com/fairwaylab/coursemapper/internal/store"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateID  = errors.New("duplicate feature id")
	ErrInvalidIndex = errors.New("index out of range")
	ErrInvalid      = errors.New("invalid")
)

type Editor struct {
	mu    sync.Mutex
	store *store.Store
	log   *slog.Logger
}

func New(st *store.Store, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{store: st, log: logger}
}

func now() time.Time { return time.Now().UTC() }

// course resolves a course or returns ErrNotFound.
func (e *Editor) course(id string) (*model.Course, error) {
	c, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func touchCourse(c *model.Course, ts time.Time) { c.UpdatedAt = ts }

func touchHole(c *model.Course, h *model.Hole, ts time.Time) {
	h.UpdatedAt = ts
	touchCourse(c, ts)
}

// CreateCourse builds a new course and inserts it into the collection.
func (e *Editor) CreateCourse(name string, loc model.Location) *model.Course {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := model.NewCourse(name, loc)
	e.store.Put(c)
	observability.ObserveMutation("create_course", nil)
	e.log.Debug("course created", "course_id", c.ID, "name", name)
	return c
}

// DeleteCourse removes a course from the in-memory collection. The
// caller is responsible for removing it from persistence as well.
func (e *Editor) DeleteCourse(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.course(id); err != nil {
		observability.ObserveMutation("delete_course", err)
		return err
	}
	e.store.Remove(id)
	observability.ObserveMutation("delete_course", nil)
	return nil
}

func (e *Editor) UpdateCourse(id string, p model.CoursePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(id)
	if err != nil {
		observability.ObserveMutation("update_course", err)
		return err
	}
	p.ApplyTo(c)
	touchCourse(c, now())
	observability.ObserveMutation("update_course", nil)
	return nil
}

// AddHole appends a hole numbered len+1 and returns its id.
func (e *Editor) AddHole(courseID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_hole", err)
		return "", err
	}
	ts := now()
	h := model.Hole{
		ID:        model.NewID(),
		Number:    len(c.Holes) + 1,
		Par:       3,
		Features:  []model.Feature{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	c.Holes = append(c.Holes, h)
	c.Renumber()
	touchCourse(c, ts)
	observability.ObserveMutation("add_hole", nil)
	return h.ID, nil
}

// DeleteHole removes a hole and renumbers the remainder 1..N. Selecting
// a new active hole when the active one goes away is the caller's job.
func (e *Editor) DeleteHole(courseID, holeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("delete_hole", err)
		return err
	}
	idx := -1
	for i := range c.Holes {
		if c.Holes[i].ID == holeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		err = fmt.Errorf("hole %s: %w", holeID, ErrNotFound)
		observability.ObserveMutation("delete_hole", err)
		return err
	}
	c.Holes = append(c.Holes[:idx], c.Holes[idx+1:]...)
	c.Renumber()
	touchCourse(c, now())
	observability.ObserveMutation("delete_hole", nil)
	return nil
}

// ReorderHoles splice-moves the hole at from to position to, then
// renumbers. Out-of-range indices are rejected, never clamped.
func (e *Editor) ReorderHoles(courseID string, from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("reorder_holes", err)
		return err
	}
	n := len(c.Holes)
	if from < 0 || from >= n || to < 0 || to >= n {
		err = fmt.Errorf("reorder %d -> %d with %d holes: %w", from, to, n, ErrInvalidIndex)
		observability.ObserveMutation("reorder_holes", err)
		return err
	}
	if from != to {
		h := c.Holes[from]
		rest := append(append([]model.Hole{}, c.Holes[:from]...), c.Holes[from+1:]...)
		c.Holes = append(append(append([]model.Hole{}, rest[:to]...), h), rest[to:]...)
		c.Renumber()
	}
	touchCourse(c, now())
	observability.ObserveMutation("reorder_holes", nil)
	return nil
}

func (e *Editor) UpdateHole(courseID, holeID string, p model.HolePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_hole", err)
		return err
	}
	h := c.FindHole(holeID)
	if h == nil {
		err = fmt.Errorf("hole %s: %w", holeID, ErrNotFound)
		observability.ObserveMutation("update_hole", err)
		return err
	}
	p.ApplyTo(h)
	touchHole(c, h, now())
	observability.ObserveMutation("update_hole", nil)
	return nil
}

// AddFeature appends a feature to a hole. The feature id must be
// pre-generated and unique across the entire course; a duplicate is
// rejected without touching anything.
func (e *Editor) AddFeature(courseID, holeID string, f model.Feature) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_feature", err)
		return err
	}
	h := c.FindHole(holeID)
	if h == nil {
		err = fmt.Errorf("hole %s: %w", holeID, ErrNotFound)
		observability.ObserveMutation("add_feature", err)
		return err
	}
	if err = f.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, err)
		observability.ObserveMutation("add_feature", err)
		return err
	}
	if c.FeatureIDInUse(f.ID) {
		err = fmt.Errorf("feature %s: %w", f.ID, ErrDuplicateID)
		observability.ObserveMutation("add_feature", err)
		return err
	}
	ts := now()
	f.HoleID = holeID
	f.CreatedAt = ts
	f.UpdatedAt = ts
	h.Features = append(h.Features, f)
	h.RefreshDerived()
	touchHole(c, h, ts)
	observability.ObserveMutation("add_feature", nil)
	return nil
}

// resolveFeature finds a hole feature by id across all holes.
func resolveFeature(c *model.Course, featureID string) (*model.Hole, *model.Feature) {
	for hi := range c.Holes {
		h := &c.Holes[hi]
		for fi := range h.Features {
			if h.Features[fi].ID == featureID {
				return h, &h.Features[fi]
			}
		}
	}
	return nil, nil
}

func (e *Editor) UpdateFeature(courseID, featureID string, p model.FeaturePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_feature", err)
		return err
	}
	h, f := resolveFeature(c, featureID)
	if f == nil {
		err = fmt.Errorf("feature %s: %w", featureID, ErrNotFound)
		observability.ObserveMutation("update_feature", err)
		return err
	}
	if err = p.ApplyTo(f); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, err)
		observability.ObserveMutation("update_feature", err)
		return err
	}
	ts := now()
	f.UpdatedAt = ts
	touchHole(c, h, ts)
	observability.ObserveMutation("update_feature", nil)
	return nil
}

// UpdateFeatureGeometry replaces the coordinate payload wholesale. The
// geometry kind must still fit the feature type; beyond that no shape
// validation (winding, self-intersection) is performed.
func (e *Editor) UpdateFeatureGeometry(courseID, featureID string, g model.Geometry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_geometry", err)
		return err
	}
	ts := now()

	if h, f := resolveFeature(c, featureID); f != nil {
		probe := *f
		probe.Geometry = g
		if err = probe.Validate(); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalid, err)
			observability.ObserveMutation("update_geometry", err)
			return err
		}
		f.Geometry = g
		f.UpdatedAt = ts
		h.RefreshDerived()
		touchHole(c, h, ts)
		observability.ObserveMutation("update_geometry", nil)
		return nil
	}
	for i := range c.Terrain {
		if c.Terrain[i].ID == featureID {
			probe := c.Terrain[i]
			probe.Geometry = g
			if err = probe.Validate(); err != nil {
				err = fmt.Errorf("%w: %v", ErrInvalid, err)
				observability.ObserveMutation("update_geometry", err)
				return err
			}
			c.Terrain[i].Geometry = g
			c.Terrain[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_geometry", nil)
			return nil
		}
	}
	for i := range c.Paths {
		if c.Paths[i].ID == featureID {
			probe := c.Paths[i]
			probe.Geometry = g
			if err = probe.Validate(); err != nil {
				err = fmt.Errorf("%w: %v", ErrInvalid, err)
				observability.ObserveMutation("update_geometry", err)
				return err
			}
			c.Paths[i].Geometry = g
			c.Paths[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_geometry", nil)
			return nil
		}
	}
	for i := range c.Trees {
		if c.Trees[i].ID == featureID {
			probe := c.Trees[i]
			probe.Geometry = g
			if err = probe.Validate(); err != nil {
				err = fmt.Errorf("%w: %v", ErrInvalid, err)
				observability.ObserveMutation("update_geometry", err)
				return err
			}
			c.Trees[i].Geometry = g
			c.Trees[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_geometry", nil)
			return nil
		}
	}
	err = fmt.Errorf("feature %s: %w", featureID, ErrNotFound)
	observability.ObserveMutation("update_geometry", err)
	return err
}

// DeleteFeature removes a feature by id from whichever collection owns
// it: a hole's feature list or the course-level terrain/path/tree sets.
func (e *Editor) DeleteFeature(courseID, featureID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("delete_feature", err)
		return err
	}
	ts := now()
	for hi := range c.Holes {
		h := &c.Holes[hi]
		for fi := range h.Features {
			if h.Features[fi].ID == featureID {
				h.Features = append(h.Features[:fi], h.Features[fi+1:]...)
				h.RefreshDerived()
				touchHole(c, h, ts)
				observability.ObserveMutation("delete_feature", nil)
				return nil
			}
		}
	}
	for i := range c.Terrain {
		if c.Terrain[i].ID == featureID {
			c.Terrain = append(c.Terrain[:i], c.Terrain[i+1:]...)
			touchCourse(c, ts)
			observability.ObserveMutation("delete_feature", nil)
			return nil
		}
	}
	for i := range c.Paths {
		if c.Paths[i].ID == featureID {
			c.Paths = append(c.Paths[:i], c.Paths[i+1:]...)
			touchCourse(c, ts)
			observability.ObserveMutation("delete_feature", nil)
			return nil
		}
	}
	for i := range c.Trees {
		if c.Trees[i].ID == featureID {
			c.Trees = append(c.Trees[:i], c.Trees[i+1:]...)
			touchCourse(c, ts)
			observability.ObserveMutation("delete_feature", nil)
			return nil
		}
	}
	err = fmt.Errorf("feature %s: %w", featureID, ErrNotFound)
	observability.ObserveMutation("delete_feature", err)
	return err
}

func (e *Editor) UpdateStyle(courseID string, p model.StylePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_style", err)
		return err
	}
	p.ApplyTo(&c.Style)
	touchCourse(c, now())
	observability.ObserveMutation("update_style", nil)
	return nil
}
