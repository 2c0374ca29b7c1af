package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/fairwaylab/coursemapper/internal/config"
	"github.com/fairwaylab/coursemapper/internal/editor"
	"github.com/fairwaylab/coursemapper/internal/gateway"
	"github.com/fairwaylab/coursemapper/internal/gateway/redisstore"
	"github.com/fairwaylab/coursemapper/internal/history"
	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	gw, err := gateway.NewRedisCourseStore(cli, 16, nil)
	if err != nil {
		t.Fatalf("NewRedisCourseStore: %v", err)
	}

	st := store.New()
	logger := slog.New(slog.DiscardHandler)
	cfg := config.Config{NearbyH3Res: 6, NearbyRingK: 2, MetricsPath: "/metrics"}

	deps := Deps{
		Store:   st,
		Editor:  editor.New(st, logger),
		History: history.New(st, 10),
		Gateway: gw,
		Ready:   func() error { return nil },
	}
	ts := httptest.NewServer(Router(cfg, logger, deps))
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createCourse(t *testing.T, ts *httptest.Server, name string) *model.Course {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/courses", map[string]any{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create course: status %d", resp.StatusCode)
	}
	c := decodeBody[*model.Course](t, resp)
	return c
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := do(t, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestEditUndoRedo_OverHTTP(t *testing.T) {
	ts, st := newTestServer(t)
	c := createCourse(t, ts, "Kviberg")
	base := ts.URL + "/courses/" + c.ID

	// Add a hole, a tee and a basket, then move the basket.
	resp := do(t, http.MethodPost, base+"/holes", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add hole: status %d", resp.StatusCode)
	}
	holeID := c.Holes[0].ID

	tee := map[string]any{
		"id":       "tee-1",
		"type":     "tee",
		"geometry": map[string]any{"type": "point", "point": map[string]any{"lat": 57.73, "lng": 12.02}},
		"tee":      map[string]any{"rotation": 15},
	}
	resp = do(t, http.MethodPost, fmt.Sprintf("%s/holes/%s/features", base, holeID), tee)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add tee: status %d", resp.StatusCode)
	}

	moved := map[string]any{"type": "point", "point": map[string]any{"lat": 57.7301, "lng": 12.0201}}
	resp = do(t, http.MethodPut, base+"/features/tee-1/geometry", moved)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("move tee: status %d", resp.StatusCode)
	}

	live, _ := st.Get(c.ID)
	if live.Holes[0].Features[0].Geometry.Point.Lat != 57.7301 {
		t.Fatalf("move not applied")
	}

	// Undo the move, then the feature add.
	resp = do(t, http.MethodPost, base+"/undo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("undo move not applied")
	}
	live, _ = st.Get(c.ID)
	if live.Holes[0].Features[0].Geometry.Point.Lat != 57.73 {
		t.Fatalf("undo did not restore the tee position")
	}

	resp = do(t, http.MethodPost, base+"/undo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("undo add not applied")
	}
	live, _ = st.Get(c.ID)
	if len(live.Holes[0].Features) != 0 {
		t.Fatalf("undo did not remove the tee")
	}

	// Redo brings the tee back.
	resp = do(t, http.MethodPost, base+"/redo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("redo not applied")
	}
	live, _ = st.Get(c.ID)
	if len(live.Holes[0].Features) != 1 || live.Holes[0].Features[0].ID != "tee-1" {
		t.Fatalf("redo did not restore the tee")
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts, _ := newTestServer(t)
	c := createCourse(t, ts, "statuses")
	base := ts.URL + "/courses/" + c.ID

	// Unknown course -> 404.
	resp := do(t, http.MethodGet, ts.URL+"/courses/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get ghost: status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPatch, ts.URL+"/courses/ghost", map[string]any{"name": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("patch ghost: status %d", resp.StatusCode)
	}

	// Duplicate feature id -> 409.
	tee := map[string]any{
		"id":       "dup",
		"type":     "tee",
		"geometry": map[string]any{"type": "point", "point": map[string]any{"lat": 1, "lng": 2}},
		"tee":      map[string]any{},
	}
	holeURL := fmt.Sprintf("%s/holes/%s/features", base, c.Holes[0].ID)
	if resp = do(t, http.MethodPost, holeURL, tee); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first add: status %d", resp.StatusCode)
	}
	if resp = do(t, http.MethodPost, holeURL, tee); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add: status %d, want 409", resp.StatusCode)
	}

	// Invalid geometry kind -> 400.
	bad := map[string]any{"type": "line", "line": []map[string]any{{"lat": 0, "lng": 0}, {"lat": 1, "lng": 1}}}
	if resp = do(t, http.MethodPut, base+"/features/dup/geometry", bad); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad geometry: status %d, want 400", resp.StatusCode)
	}

	// Reorder out of range -> 400.
	if resp = do(t, http.MethodPost, base+"/holes/reorder", map[string]int{"from": 0, "to": 9}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad reorder: status %d, want 400", resp.StatusCode)
	}

	// Unknown body field -> 400 via DisallowUnknownFields.
	if resp = do(t, http.MethodPatch, base, map[string]any{"nmae": "typo"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d, want 400", resp.StatusCode)
	}
}

func TestExportImport_RoundTripOverHTTP(t *testing.T) {
	ts, st := newTestServer(t)
	c := createCourse(t, ts, "Mölndal")
	base := ts.URL + "/courses/" + c.ID

	if resp := do(t, http.MethodPatch, base+"/style", map[string]any{"tee_color": "#fedcba"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("style patch: status %d", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, base+"/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd == "" {
		t.Fatalf("export missing Content-Disposition")
	}
	var fileBuf bytes.Buffer
	if _, err := fileBuf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read export: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/import", &fileBuf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("import: status %d", resp2.StatusCode)
	}
	imported := decodeBody[*model.Course](t, resp2)

	if imported.ID == c.ID {
		t.Fatalf("import reused the source course id")
	}
	if imported.Style.TeeColor != "#fedcba" {
		t.Fatalf("imported style = %q", imported.Style.TeeColor)
	}
	if _, ok := st.Get(imported.ID); !ok {
		t.Fatalf("imported course not in the collection")
	}
	if st.Len() != 2 {
		t.Fatalf("collection holds %d courses, want 2", st.Len())
	}
}

func TestDeleteCourse_ForgetsHistory(t *testing.T) {
	ts, st := newTestServer(t)
	c := createCourse(t, ts, "gone soon")
	base := ts.URL + "/courses/" + c.ID

	if resp := do(t, http.MethodPost, base+"/holes", nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add hole failed")
	}
	if resp := do(t, http.MethodDelete, base, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete course failed")
	}
	if _, ok := st.Get(c.ID); ok {
		t.Fatalf("course still in the collection")
	}
	// Undo after delete has nothing to operate on.
	if resp := do(t, http.MethodPost, base+"/undo", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("undo on deleted course: status %d, want 404", resp.StatusCode)
	}
}

func TestListAndNearby(t *testing.T) {
	ts, _ := newTestServer(t)
	c := createCourse(t, ts, "listed")
	base := ts.URL + "/courses/" + c.ID

	resp := do(t, http.MethodGet, ts.URL+"/courses", nil)
	summaries := decodeBody[[]gateway.CourseSummary](t, resp)
	if len(summaries) != 1 || summaries[0].ID != c.ID {
		t.Fatalf("list = %+v", summaries)
	}

	if resp := do(t, http.MethodPatch, base, map[string]any{"location_at": map[string]any{"lat": 59.33, "lng": 18.07}}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("patch location failed")
	}
	// Nothing has been persisted yet: nearby reads the live collection,
	// so the course is findable the moment it exists.
	resp = do(t, http.MethodGet, ts.URL+"/courses/nearby?lat=59.33&lng=18.07", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby: status %d", resp.StatusCode)
	}
	found := decodeBody[[]gateway.CourseSummary](t, resp)
	if len(found) != 1 || found[0].ID != c.ID {
		t.Fatalf("nearby = %+v, want the just-created course", found)
	}

	resp = do(t, http.MethodGet, ts.URL+"/courses/nearby?lat=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("nearby without coordinates: status %d, want 400", resp.StatusCode)
	}
}

func TestRejectedEdit_PreservesHistory(t *testing.T) {
	ts, st := newTestServer(t)
	c := createCourse(t, ts, "Ale")
	base := ts.URL + "/courses/" + c.ID

	// One real edit, then undo it so a redo branch exists.
	if resp := do(t, http.MethodPost, base+"/holes", nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add hole: status %d", resp.StatusCode)
	}
	resp := do(t, http.MethodPost, base+"/undo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("undo not applied")
	}

	// A rejected edit must not clear the redo branch or record a
	// no-change undo entry.
	if resp := do(t, http.MethodPatch, base+"/holes/ghost", map[string]any{"par": 4}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ghost hole patch: status %d, want 404", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, base+"/redo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("redo branch lost after a rejected edit")
	}
	live, _ := st.Get(c.ID)
	if len(live.Holes) != 2 {
		t.Fatalf("holes = %d after redo, want 2", len(live.Holes))
	}

	// Undo walks back the one real edit; a second undo finds nothing,
	// so the rejection recorded no entry of its own.
	resp = do(t, http.MethodPost, base+"/undo", nil)
	if got := decodeBody[map[string]bool](t, resp); !got["applied"] {
		t.Fatalf("undo of the real edit not applied")
	}
	resp = do(t, http.MethodPost, base+"/undo", nil)
	if got := decodeBody[map[string]bool](t, resp); got["applied"] {
		t.Fatalf("phantom undo entry left by the rejected edit")
	}
}
