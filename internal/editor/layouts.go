package editor

import (
	"fmt"

	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/observability"
)

// AddLayout appends a tournament layout. An empty id gets one generated.
func (e *Editor) AddLayout(courseID string, l model.Layout) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("add_layout", err)
		return "", err
	}
	if l.ID == "" {
		l.ID = model.NewID()
	}
	if c.FindLayout(l.ID) != nil {
		err = fmt.Errorf("layout %s: %w", l.ID, ErrDuplicateID)
		observability.ObserveMutation("add_layout", err)
		return "", err
	}
	ts := now()
	l.CreatedAt = ts
	l.UpdatedAt = ts
	c.Layouts = append(c.Layouts, l)
	touchCourse(c, ts)
	observability.ObserveMutation("add_layout", nil)
	return l.ID, nil
}

func (e *Editor) UpdateLayout(courseID, layoutID string, p model.LayoutPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("update_layout", err)
		return err
	}
	l := c.FindLayout(layoutID)
	if l == nil {
		err = fmt.Errorf("layout %s: %w", layoutID, ErrNotFound)
		observability.ObserveMutation("update_layout", err)
		return err
	}
	p.ApplyTo(l)
	ts := now()
	l.UpdatedAt = ts
	touchCourse(c, ts)
	observability.ObserveMutation("update_layout", nil)
	return nil
}

// DeleteLayout removes a layout; deleting the active one clears the
// active-layout reference.
func (e *Editor) DeleteLayout(courseID, layoutID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("delete_layout", err)
		return err
	}
	for i := range c.Layouts {
		if c.Layouts[i].ID == layoutID {
			c.Layouts = append(c.Layouts[:i], c.Layouts[i+1:]...)
			if c.ActiveLayoutID == layoutID {
				c.ActiveLayoutID = ""
			}
			touchCourse(c, now())
			observability.ObserveMutation("delete_layout", nil)
			return nil
		}
	}
	err = fmt.Errorf("layout %s: %w", layoutID, ErrNotFound)
	observability.ObserveMutation("delete_layout", err)
	return err
}

// SetActiveLayout points the course at one of its layouts; an empty
// layoutID clears the reference.
func (e *Editor) SetActiveLayout(courseID, layoutID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.course(courseID)
	if err != nil {
		observability.ObserveMutation("set_active_layout", err)
		return err
	}
	if layoutID != "" && c.FindLayout(layoutID) == nil {
		err = fmt.Errorf("layout %s: %w", layoutID, ErrNotFound)
		observability.ObserveMutation("set_active_layout", err)
		return err
	}
	c.ActiveLayoutID = layoutID
	touchCourse(c, now())
	observability.ObserveMutation("set_active_layout", nil)
	return nil
}
