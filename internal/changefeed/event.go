// Package changefeed broadcasts course-change notifications between
// instances so gateway read caches stay coherent.
package changefeed

import (
	"fmt"
	"strings"
	"time"
)

const (
	OpSave   = "save"
	OpDelete = "delete"
)

type Event struct {
	Version  int       `json:"version"`
	Op       string    `json:"op"`
	CourseID string    `json:"course_id"`
	TS       time.Time `json:"ts"`
	Source   string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpSave, OpDelete:
	default:
		return fmt.Errorf("op must be %s|%s", OpSave, OpDelete)
	}
	if strings.TrimSpace(e.CourseID) == "" {
		return fmt.Errorf("course_id is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
