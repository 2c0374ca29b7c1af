package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairwaylab/coursemapper/internal/store"
)

// Notifier is told about every record actually written or deleted; the
// change feed publisher implements it. A nil notifier is fine.
type Notifier interface {
	CourseSaved(ctx context.Context, courseID string)
	CourseDeleted(ctx context.Context, courseID string)
}

// Autosaver periodically flushes the in-memory collection to the
// gateway. Save failures are logged and retried on the next tick; the
// document model itself never sees them.
type Autosaver struct {
	store    *store.Store
	gw       CourseStore
	notify   Notifier
	interval time.Duration
	log      *slog.Logger
}

func NewAutosaver(st *store.Store, gw CourseStore, notify Notifier, interval time.Duration, logger *slog.Logger) *Autosaver {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{store: st, gw: gw, notify: notify, interval: interval, log: logger}
}

// Run blocks until ctx is done, flushing on every tick and once more on
// shutdown.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			a.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush writes every dirty course once. Unchanged documents are skipped
// inside Save via the content hash.
func (a *Autosaver) Flush(ctx context.Context) {
	for _, id := range a.store.IDs() {
		c, ok := a.store.Snapshot(id)
		if !ok {
			continue
		}
		written, err := a.gw.Save(ctx, c)
		if err != nil {
			a.log.Warn("autosave failed; will retry next tick", "course_id", id, "err", err)
			continue
		}
		if written && a.notify != nil {
			a.notify.CourseSaved(ctx, id)
		}
	}
}
