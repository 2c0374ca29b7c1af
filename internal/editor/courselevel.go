package editor

import (
	"fmt"

	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/observability"
)

// Course-level features share the feature id namespace with hole
// features, so the duplicate check spans the whole course.

func (e *Editor) AddTerrain(courseID string, t model.TerrainFeature) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_terrain", err)
		return err
	}
	if err = t.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, err)
		observability.ObserveMutation("add_terrain", err)
		return err
	}
	if c.FeatureIDInUse(t.ID) {
		err = fmt.Errorf("terrain %s: %w", t.ID, ErrDuplicateID)
		observability.ObserveMutation("add_terrain", err)
		return err
	}
	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts
	c.Terrain = append(c.Terrain, t)
	touchCourse(c, ts)
	observability.ObserveMutation("add_terrain", nil)
	return nil
}

func (e *Editor) AddPath(courseID string, p model.PathFeature) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_path", err)
		return err
	}
	if err = p.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, err)
		observability.ObserveMutation("add_path", err)
		return err
	}
	if c.FeatureIDInUse(p.ID) {
		err = fmt.Errorf("path %s: %w", p.ID, ErrDuplicateID)
		observability.ObserveMutation("add_path", err)
		return err
	}
	ts := now()
	p.CreatedAt = ts
	p.UpdatedAt = ts
	c.Paths = append(c.Paths, p)
	touchCourse(c, ts)
	observability.ObserveMutation("add_path", nil)
	return nil
}

func (e *Editor) AddTree(courseID string, t model.TreeFeature) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_tree", err)
		return err
	}
	if err = t.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, err)
		observability.ObserveMutation("add_tree", err)
		return err
	}
	if c.FeatureIDInUse(t.ID) {
		err = fmt.Errorf("tree %s: %w", t.ID, ErrDuplicateID)
		observability.ObserveMutation("add_tree", err)
		return err
	}
	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts
	c.Trees = append(c.Trees, t)
	touchCourse(c, ts)
	observability.ObserveMutation("add_tree", nil)
	return nil
}

func (e *Editor) UpdateTerrain(courseID, terrainID string, p model.TerrainPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_terrain", err)
		return err
	}
	for i := range c.Terrain {
		if c.Terrain[i].ID == terrainID {
			p.ApplyTo(&c.Terrain[i])
			ts := now()
			c.Terrain[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_terrain", nil)
			return nil
		}
	}
	err = fmt.Errorf("terrain %s: %w", terrainID, ErrNotFound)
	observability.ObserveMutation("update_terrain", err)
	return err
}

func (e *Editor) UpdatePath(courseID, pathID string, p model.PathPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_path", err)
		return err
	}
	for i := range c.Paths {
		if c.Paths[i].ID == pathID {
			p.ApplyTo(&c.Paths[i])
			ts := now()
			c.Paths[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_path", nil)
			return nil
		}
	}
	err = fmt.Errorf("path %s: %w", pathID, ErrNotFound)
	observability.ObserveMutation("update_path", err)
	return err
}

func (e *Editor) UpdateTree(courseID, treeID string, p model.TreePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_tree", err)
		return err
	}
	for i := range c.Trees {
		if c.Trees[i].ID == treeID {
			p.ApplyTo(&c.Trees[i])
			ts := now()
			c.Trees[i].UpdatedAt = ts
			touchCourse(c, ts)
			observability.ObserveMutation("update_tree", nil)
			return nil
		}
	}
	err = fmt.Errorf("tree %s: %w", treeID, ErrNotFound)
	observability.ObserveMutation("update_tree", err)
	return err
}
