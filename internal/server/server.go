// Package server exposes the course document tree and the mutation API
// over HTTP. It is the in-process stand-in for the presentation layer:
// every route maps onto one editor, history or gateway operation.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairwaylab/coursemapper/internal/config"
	"github.com/fairwaylab/coursemapper/internal/editor"
	"github.com/fairwaylab/coursemapper/internal/gateway"
	"github.com/fairwaylab/coursemapper/internal/health"
	"github.com/fairwaylab/coursemapper/internal/history"
	imw "github.com/fairwaylab/coursemapper/internal/middleware"
	"github.com/fairwaylab/coursemapper/internal/observability"
	"github.com/fairwaylab/coursemapper/internal/store"
)

type Deps struct {
	Store   *store.Store
	Editor  *editor.Editor
	History *history.Manager
	Gateway gateway.CourseStore
	Notify  gateway.Notifier // optional
	Ready   func() error     // optional readiness probe
	Metrics http.Handler     // optional /metrics handler
}

// Router builds the full route tree; split out from Run so tests can
// drive it through httptest.
func Router(cfg config.Config, logger *slog.Logger, deps Deps) http.Handler {
	h := &handlers{
		cfg:   cfg,
		log:   logger,
		store: deps.Store,
		ed:    deps.Editor,
		hist:  deps.History,
		gw:    deps.Gateway,
		note:  deps.Notify,
	}

	r := chi.NewRouter()
	r.Use(imw.Recover(logger))
	r.Use(imw.RequestID())
	r.Use(imw.Logging(logger))
	r.Use(imw.CORS())
	r.Use(observeHTTP)

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Ready))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, deps.Metrics)
	}

	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.listCourses)
		r.Post("/", h.createCourse)
		r.Get("/nearby", h.nearbyCourses)

		r.Route("/{courseID}", func(r chi.Router) {
			r.Get("/", h.getCourse)
			r.Patch("/", h.updateCourse)
			r.Delete("/", h.deleteCourse)
			r.Get("/export", h.exportCourse)

			r.Post("/holes", h.addHole)
			r.Post("/holes/reorder", h.reorderHoles)
			r.Patch("/holes/{holeID}", h.updateHole)
			r.Delete("/holes/{holeID}", h.deleteHole)
			r.Post("/holes/{holeID}/features", h.addFeature)

			r.Patch("/features/{featureID}", h.updateFeature)
			r.Put("/features/{featureID}/geometry", h.updateFeatureGeometry)
			r.Delete("/features/{featureID}", h.deleteFeature)

			r.Post("/terrain", h.addTerrain)
			r.Patch("/terrain/{terrainID}", h.updateTerrain)
			r.Post("/paths", h.addPath)
			r.Patch("/paths/{pathID}", h.updatePath)
			r.Post("/trees", h.addTree)
			r.Patch("/trees/{treeID}", h.updateTree)

			r.Patch("/style", h.updateStyle)

			r.Post("/layouts", h.addLayout)
			r.Patch("/layouts/{layoutID}", h.updateLayout)
			r.Delete("/layouts/{layoutID}", h.deleteLayout)
			r.Put("/layouts/active", h.setActiveLayout)

			r.Post("/undo", h.undo)
			r.Post("/redo", h.redo)
		})
	})

	r.Post("/import", h.importCourse)

	return r
}

// Run serves the router until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Router(cfg, logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func observeHTTP(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
	return http.HandlerFunc(fn)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
