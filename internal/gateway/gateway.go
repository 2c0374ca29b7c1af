// Package gateway persists whole course documents to a key-value store
// and serves them back, applying the style schema migration on load.
package gateway

import (
	"context"
	"errors"

	"github.com/fairwaylab/coursemapper/internal/model"
)

var ErrNotFound = errors.New("course not found")

// CourseStore is the persistence interface the editing core depends on.
// Save reports whether a write actually happened; an unchanged document
// is skipped and returns false.
type CourseStore interface {
	Load(ctx context.Context, id string) (*model.Course, error)
	LoadAll(ctx context.Context) (map[string]*model.Course, error)
	Save(ctx context.Context, c *model.Course) (bool, error)
	Delete(ctx context.Context, id string) error
}
