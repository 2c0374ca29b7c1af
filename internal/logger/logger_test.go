package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	return m
}

func TestBuild_EmitsComponentAndLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Component: "editor"}, &buf)
	zl.Debug().Msg("hello")

	m := logLine(t, &buf)
	if m["component"] != "editor" || m["msg"] != "hello" || m["level"] != "debug" {
		t.Fatalf("line = %v", m)
	}
}

func TestBuild_FiltersBelowLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	zl.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %s", buf.String())
	}
	zl.Error().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error line missing")
	}
}

func TestFromContext_AddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithCourseID(ctx, "course-9")
	FromContext(ctx, &zl).Info().Msg("tagged")

	m := logLine(t, &buf)
	if m["request_id"] != "req-1" || m["course_id"] != "course-9" {
		t.Fatalf("context fields missing: %v", m)
	}
}

func TestSlogBridge_ForwardsAttrsAndContext(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{}, &buf)
	log := NewSlog(&zl).With("op", "add_hole")

	ctx := WithRequestID(context.Background(), "req-2")
	log.InfoContext(ctx, "applied", "holes", int64(9))

	m := logLine(t, &buf)
	if m["msg"] != "applied" || m["op"] != "add_hole" {
		t.Fatalf("line = %v", m)
	}
	if m["request_id"] != "req-2" {
		t.Fatalf("request id not forwarded: %v", m)
	}
	if m["holes"] != float64(9) {
		t.Fatalf("holes attr = %v", m["holes"])
	}
}

func TestNewID_IsRandomHex(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 16 || a == b {
		t.Fatalf("ids = %q, %q", a, b)
	}
}
