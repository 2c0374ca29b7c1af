package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fairwaylab/coursemapper/internal/config"
	"github.com/fairwaylab/coursemapper/internal/editor"
	"github.com/fairwaylab/coursemapper/internal/exchange"
	"github.com/fairwaylab/coursemapper/internal/gateway"
	"github.com/fairwaylab/coursemapper/internal/history"
	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/store"
)

// importBodyLimit caps uploaded course files.
const importBodyLimit = 8 << 20

type handlers struct {
	cfg   config.Config
	log   *slog.Logger
	store *store.Store
	ed    *editor.Editor
	hist  *history.Manager
	gw    gateway.CourseStore
	note  gateway.Notifier
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errBody struct {
	Error string `json:"error"`
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, gateway.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Error: err.Error()})
	case errors.Is(err, editor.ErrDuplicateID):
		writeJSON(w, http.StatusConflict, errBody{Error: err.Error()})
	case errors.Is(err, editor.ErrInvalid),
		errors.Is(err, editor.ErrInvalidIndex),
		errors.Is(err, exchange.ErrInvalidDocument),
		errors.Is(err, exchange.ErrUnreadable):
		writeJSON(w, http.StatusBadRequest, errBody{Error: err.Error()})
	default:
		h.log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errBody{Error: msg})
}

// edit runs fn under undo coverage. The pre-edit state is captured
// first but recorded only when fn succeeds: a rejected edit must not
// grow the undo stack or clear the redo branch. A failed capture
// aborts the edit, since losing undo coverage silently would be worse
// than failing the request.
func (h *handlers) edit(w http.ResponseWriter, courseID string, fn func() error) bool {
	staged, err := h.hist.Stage(courseID)
	if err != nil {
		h.fail(w, err)
		return false
	}
	if err := fn(); err != nil {
		h.fail(w, err)
		return false
	}
	staged.Commit()
	return true
}

func (h *handlers) listCourses(w http.ResponseWriter, r *http.Request) {
	ids := h.store.IDs()
	out := make([]gateway.CourseSummary, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.store.Snapshot(id); ok {
			out = append(out, gateway.CourseSummary{
				ID:         c.ID,
				Name:       c.Name,
				Location:   c.Location,
				TotalHoles: c.TotalHoles,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type createCourseReq struct {
	Name     string         `json:"name"`
	Location model.Location `json:"location"`
}

func (h *handlers) createCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseReq
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	c := h.ed.CreateCourse(req.Name, req.Location)
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) getCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	c, ok := h.store.Snapshot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errBody{Error: "course " + id + ": not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) updateCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	var p model.CoursePatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, id, func() error { return h.ed.UpdateCourse(id, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	if err := h.ed.DeleteCourse(id); err != nil {
		h.fail(w, err)
		return
	}
	h.hist.Forget(id)
	if err := h.gw.Delete(r.Context(), id); err != nil {
		h.log.Warn("delete from persistence failed", "course_id", id, "err", err)
	} else if h.note != nil {
		h.note.CourseDeleted(r.Context(), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) exportCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	c, ok := h.store.Snapshot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errBody{Error: "course " + id + ": not found"})
		return
	}
	body, err := exchange.Export(c)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+c.Name+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *handlers) importCourse(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, importBodyLimit))
	if err != nil {
		badRequest(w, "read body: "+err.Error())
		return
	}
	c, err := exchange.Import(data)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.store.Put(c)
	if _, err := h.gw.Save(r.Context(), c); err != nil {
		h.log.Warn("persist imported course failed", "course_id", c.ID, "err", err)
	} else if h.note != nil {
		h.note.CourseSaved(r.Context(), c.ID)
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) nearbyCourses(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		badRequest(w, "lat and lng query parameters are required")
		return
	}
	ringK := h.cfg.NearbyRingK
	if v := r.URL.Query().Get("k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ringK = n
		}
	}
	ids := h.store.IDs()
	courses := make([]*model.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.store.Snapshot(id); ok {
			courses = append(courses, c)
		}
	}
	out, err := gateway.Nearby(courses, model.LatLng{Lat: lat, Lng: lng}, h.cfg.NearbyH3Res, ringK)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) addHole(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var holeID string
	if !h.edit(w, courseID, func() error {
		var err error
		holeID, err = h.ed.AddHole(courseID)
		return err
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hole_id": holeID})
}

func (h *handlers) updateHole(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	holeID := chi.URLParam(r, "holeID")
	var p model.HolePatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateHole(courseID, holeID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteHole(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	holeID := chi.URLParam(r, "holeID")
	if !h.edit(w, courseID, func() error { return h.ed.DeleteHole(courseID, holeID) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderReq struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *handlers) reorderHoles(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var req reorderReq
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.ReorderHoles(courseID, req.From, req.To) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addFeature(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	holeID := chi.URLParam(r, "holeID")
	var f model.Feature
	if err := readJSON(r, &f); err != nil {
		badRequest(w, "invalid feature: "+err.Error())
		return
	}
	if f.ID == "" {
		f.ID = model.NewID()
	}
	if !h.edit(w, courseID, func() error { return h.ed.AddFeature(courseID, holeID, f) }) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"feature_id": f.ID})
}

func (h *handlers) updateFeature(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	featureID := chi.URLParam(r, "featureID")
	var p model.FeaturePatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateFeature(courseID, featureID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateFeatureGeometry(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	featureID := chi.URLParam(r, "featureID")
	var g model.Geometry
	if err := readJSON(r, &g); err != nil {
		badRequest(w, "invalid geometry: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateFeatureGeometry(courseID, featureID, g) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteFeature(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	featureID := chi.URLParam(r, "featureID")
	if !h.edit(w, courseID, func() error { return h.ed.DeleteFeature(courseID, featureID) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addTerrain(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var t model.TerrainFeature
	if err := readJSON(r, &t); err != nil {
		badRequest(w, "invalid terrain feature: "+err.Error())
		return
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}
	if !h.edit(w, courseID, func() error { return h.ed.AddTerrain(courseID, t) }) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"feature_id": t.ID})
}

func (h *handlers) updateTerrain(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	terrainID := chi.URLParam(r, "terrainID")
	var p model.TerrainPatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateTerrain(courseID, terrainID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addPath(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var p model.PathFeature
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid path feature: "+err.Error())
		return
	}
	if p.ID == "" {
		p.ID = model.NewID()
	}
	if !h.edit(w, courseID, func() error { return h.ed.AddPath(courseID, p) }) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"feature_id": p.ID})
}

func (h *handlers) updatePath(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	pathID := chi.URLParam(r, "pathID")
	var p model.PathPatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdatePath(courseID, pathID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addTree(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var t model.TreeFeature
	if err := readJSON(r, &t); err != nil {
		badRequest(w, "invalid tree feature: "+err.Error())
		return
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}
	if !h.edit(w, courseID, func() error { return h.ed.AddTree(courseID, t) }) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"feature_id": t.ID})
}

func (h *handlers) updateTree(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	treeID := chi.URLParam(r, "treeID")
	var p model.TreePatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateTree(courseID, treeID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateStyle(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var p model.StylePatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateStyle(courseID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) addLayout(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var l model.Layout
	if err := readJSON(r, &l); err != nil {
		badRequest(w, "invalid layout: "+err.Error())
		return
	}
	var id string
	if !h.edit(w, courseID, func() error {
		var err error
		id, err = h.ed.AddLayout(courseID, l)
		return err
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"layout_id": id})
}

func (h *handlers) updateLayout(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	layoutID := chi.URLParam(r, "layoutID")
	var p model.LayoutPatch
	if err := readJSON(r, &p); err != nil {
		badRequest(w, "invalid patch: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.UpdateLayout(courseID, layoutID, p) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteLayout(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	layoutID := chi.URLParam(r, "layoutID")
	if !h.edit(w, courseID, func() error { return h.ed.DeleteLayout(courseID, layoutID) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activeLayoutReq struct {
	LayoutID string `json:"layout_id"`
}

func (h *handlers) setActiveLayout(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	var req activeLayoutReq
	if err := readJSON(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if !h.edit(w, courseID, func() error { return h.ed.SetActiveLayout(courseID, req.LayoutID) }) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type historyResp struct {
	Applied bool `json:"applied"`
}

func (h *handlers) undo(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	applied, err := h.hist.Undo(courseID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResp{Applied: applied})
}

func (h *handlers) redo(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	applied, err := h.hist.Redo(courseID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResp{Applied: applied})
}
