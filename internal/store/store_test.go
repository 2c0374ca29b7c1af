package store

import (
	"testing"

	"github.com/fairwaylab/coursemapper/internal/model"
)

func TestStore_PutGetRemove(t *testing.T) {
	s := New()
	c := model.NewCourse("Ale", model.Location{})
	s.Put(c)

	got, ok := s.Get(c.ID)
	if !ok || got != c {
		t.Fatalf("Get should return the live pointer")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	s.Remove(c.ID)
	if _, ok := s.Get(c.ID); ok {
		t.Fatalf("course still present after Remove")
	}
	s.Remove("missing") // no-op
}

func TestStore_SnapshotDoesNotAlias(t *testing.T) {
	s := New()
	c := model.NewCourse("Ale", model.Location{})
	s.Put(c)

	snap, ok := s.Snapshot(c.ID)
	if !ok {
		t.Fatalf("snapshot missing")
	}
	if snap == c {
		t.Fatalf("snapshot returned the live pointer")
	}

	snap.Name = "changed"
	snap.Holes[0].Par = 5
	live, _ := s.Get(c.ID)
	if live.Name != "Ale" || live.Holes[0].Par != 3 {
		t.Fatalf("mutating the snapshot leaked into the live document")
	}
}

func TestStore_ReplaceAll(t *testing.T) {
	s := New()
	s.Put(model.NewCourse("old", model.Location{}))

	a := model.NewCourse("a", model.Location{})
	b := model.NewCourse("b", model.Location{})
	s.ReplaceAll(map[string]*model.Course{a.ID: a, b.ID: b, "nil": nil})

	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if _, ok := s.Get(a.ID); !ok {
		t.Fatalf("course a missing after ReplaceAll")
	}
	ids := s.IDs()
	if len(ids) != 2 {
		t.Fatalf("IDs = %v", ids)
	}
}
