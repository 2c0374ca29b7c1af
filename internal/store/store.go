// Package store holds the canonical in-memory collection of course
// documents. It is a plain container: no validation, no side effects,
// and operations on a missing id do nothing.
package store

import (
	"sync"

	"github.com/brunoga/deep"

	"github.com/fairwaylab/coursemapper/internal/model"
)

type Store struct {
	mu      sync.RWMutex
	courses map[string]*model.Course
}

func New() *Store {
	return &Store{courses: make(map[string]*model.Course)}
}

// Get returns the live document pointer. Callers that mutate it must
// go through the editor; renderers should use Snapshot instead.
func (s *Store) Get(id string) (*model.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	return c, ok
}

// Snapshot returns an independent deep copy of the document, safe to
// hand across the read boundary.
func (s *Store) Snapshot(id string) (*model.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, false
	}
	cp, err := deep.Copy(c)
	if err != nil {
		// The document tree is plain data; a copy failure would mean a
		// corrupted tree, so treat it as absent.
		return nil, false
	}
	return cp, true
}

// Put inserts or replaces one course.
func (s *Store) Put(c *model.Course) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

// ReplaceAll swaps the whole collection, used on initial load.
func (s *Store) ReplaceAll(courses map[string]*model.Course) {
	next := make(map[string]*model.Course, len(courses))
	for id, c := range courses {
		if c != nil {
			next[id] = c
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = next
}

// Remove deletes a course by id; unknown ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, id)
}

// IDs returns the ids of all stored courses in unspecified order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.courses))
	for id := range s.courses {
		out = append(out, id)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses)
}
