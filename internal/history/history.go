// Package history provides linear undo/redo over whole-course states.
//
// Each course owns its own bounded pair of stacks; undo after switching
// courses operates on the switched-to course's history and is a no-op
// if that course was never edited. History is linear: a fresh Save
// always discards the redo branch.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brunoga/deep"

	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/observability"
	"github.com/fairwaylab/coursemapper/internal/store"
)

// DefaultCapacity bounds each course's undo stack; the oldest snapshot
// is evicted first once the cap is hit.
const DefaultCapacity = 50

var ErrNotFound = errors.New("course not found")

type snapshot struct {
	takenAt time.Time
	course  *model.Course
}

type Manager struct {
	mu       sync.Mutex
	store    *store.Store
	capacity int
	undo     map[string][]snapshot
	redo     map[string][]snapshot
}

func New(st *store.Store, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		store:    st,
		capacity: capacity,
		undo:     make(map[string][]snapshot),
		redo:     make(map[string][]snapshot),
	}
}

func clone(c *model.Course) (*model.Course, error) {
	cp, err := deep.Copy(c)
	if err != nil {
		return nil, fmt.Errorf("deep copy course %s: %w", c.ID, err)
	}
	return cp, nil
}

// Save captures the current live state of the course onto its undo
// stack and clears the redo stack. Call it before applying an edit
// that cannot fail; edits that may be rejected should go through
// Stage/Commit so a rejection leaves history untouched.
func (m *Manager) Save(courseID string) error {
	s, err := m.Stage(courseID)
	if err != nil {
		return err
	}
	s.Commit()
	return nil
}

// Staged is a captured pre-edit state that has not been recorded yet.
// Dropping it without Commit leaves both stacks exactly as they were.
type Staged struct {
	m        *Manager
	courseID string
	course   *model.Course
}

// Stage deep-copies the current live state of the course without
// touching any stack.
func (m *Manager) Stage(courseID string) (*Staged, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live, ok := m.store.Get(courseID)
	if !ok {
		err := fmt.Errorf("course %s: %w", courseID, ErrNotFound)
		observability.ObserveHistory("save", false, err)
		return nil, err
	}
	cp, err := clone(live)
	if err != nil {
		observability.ObserveHistory("save", false, err)
		return nil, err
	}
	return &Staged{m: m, courseID: courseID, course: cp}, nil
}

// Commit records the staged state onto its course's undo stack and
// clears the redo branch.
func (s *Staged) Commit() {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	stack := m.undo[s.courseID]
	if len(stack) >= m.capacity {
		evict := len(stack) - m.capacity + 1
		stack = append(stack[:0], stack[evict:]...)
	}
	m.undo[s.courseID] = append(stack, snapshot{takenAt: time.Now().UTC(), course: s.course})
	m.redo[s.courseID] = nil

	observability.ObserveHistory("save", true, nil)
	observability.SetSnapshotsHeld(m.totalLocked())
}

// Undo restores the most recent snapshot, pushing the current live
// state onto the redo stack. Returns false on an empty stack.
func (m *Manager) Undo(courseID string) (bool, error) {
	return m.shift(courseID, "undo")
}

// Redo restores the most recently undone state, pushing the current
// live state back onto the undo stack. Returns false on an empty stack.
func (m *Manager) Redo(courseID string) (bool, error) {
	return m.shift(courseID, "redo")
}

func (m *Manager) shift(courseID, op string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to := m.undo, m.redo
	if op == "redo" {
		from, to = m.redo, m.undo
	}

	stack := from[courseID]
	if len(stack) == 0 {
		observability.ObserveHistory(op, false, nil)
		return false, nil
	}

	live, ok := m.store.Get(courseID)
	if !ok {
		err := fmt.Errorf("course %s: %w", courseID, ErrNotFound)
		observability.ObserveHistory(op, false, err)
		return false, err
	}
	liveCopy, err := clone(live)
	if err != nil {
		observability.ObserveHistory(op, false, err)
		return false, err
	}

	top := stack[len(stack)-1]
	from[courseID] = stack[:len(stack)-1]
	to[courseID] = append(to[courseID], snapshot{takenAt: time.Now().UTC(), course: liveCopy})

	m.store.Put(top.course)

	observability.ObserveHistory(op, true, nil)
	observability.SetSnapshotsHeld(m.totalLocked())
	return true, nil
}

// Depth reports the current undo and redo stack sizes for a course.
func (m *Manager) Depth(courseID string) (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[courseID]), len(m.redo[courseID])
}

// Forget drops all history for a course, used when the course itself is
// deleted.
func (m *Manager) Forget(courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.undo, courseID)
	delete(m.redo, courseID)
	observability.SetSnapshotsHeld(m.totalLocked())
}

func (m *Manager) totalLocked() int {
	n := 0
	for _, s := range m.undo {
		n += len(s)
	}
	for _, s := range m.redo {
		n += len(s)
	}
	return n
}
