package editor

import (
	"errors"
	"testing"

	"github.com/fairwaylab/coursemapper/internal/model"
)

func TestLayoutLifecycle(t *testing.T) {
	e, _ := newEditor(t)
	c := mustCourse(t, e)

	id, err := e.AddLayout(c.ID, model.Layout{Name: "Tournament 18"})
	if err != nil {
		t.Fatalf("add layout: %v", err)
	}
	if id == "" {
		t.Fatalf("layout id not generated")
	}

	if err := e.UpdateLayout(c.ID, id, model.LayoutPatch{
		Name:  model.Set("Open 18"),
		Holes: model.Set([]model.LayoutHole{{HoleID: c.Holes[0].ID}}),
	}); err != nil {
		t.Fatalf("update layout: %v", err)
	}
	l := c.FindLayout(id)
	if l == nil || l.Name != "Open 18" || len(l.Holes) != 1 {
		t.Fatalf("layout after update = %+v", l)
	}

	if err := e.SetActiveLayout(c.ID, id); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if c.ActiveLayoutID != id {
		t.Fatalf("active layout = %q, want %q", c.ActiveLayoutID, id)
	}

	if err := e.SetActiveLayout(c.ID, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("activating unknown layout: err = %v", err)
	}

	// Deleting the active layout clears the selection.
	if err := e.DeleteLayout(c.ID, id); err != nil {
		t.Fatalf("delete layout: %v", err)
	}
	if c.ActiveLayoutID != "" {
		t.Fatalf("active layout id should be cleared, got %q", c.ActiveLayoutID)
	}
	if c.FindLayout(id) != nil {
		t.Fatalf("layout still present after delete")
	}
}

func TestSetActiveLayout_EmptyClears(t *testing.T) {
	e, _ := newEditor(t)
	c := mustCourse(t, e)

	id, err := e.AddLayout(c.ID, model.Layout{Name: "A"})
	if err != nil {
		t.Fatalf("add layout: %v", err)
	}
	if err := e.SetActiveLayout(c.ID, id); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := e.SetActiveLayout(c.ID, ""); err != nil {
		t.Fatalf("clear active: %v", err)
	}
	if c.ActiveLayoutID != "" {
		t.Fatalf("active layout not cleared")
	}
}
