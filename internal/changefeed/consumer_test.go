package changefeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(courseID string) {
	r.ids = append(r.ids, courseID)
}

func message(t *testing.T, ev Event) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Value: b, Key: []byte(ev.CourseID)}
}

func TestEvent_Validate(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"valid save", Event{Version: 1, Op: OpSave, CourseID: "c1", TS: now}, false},
		{"valid delete", Event{Version: 1, Op: OpDelete, CourseID: "c1", TS: now, Source: "i1"}, false},
		{"wrong version", Event{Version: 2, Op: OpSave, CourseID: "c1", TS: now}, true},
		{"unknown op", Event{Version: 1, Op: "touch", CourseID: "c1", TS: now}, true},
		{"blank course id", Event{Version: 1, Op: OpSave, CourseID: " ", TS: now}, true},
		{"zero ts", Event{Version: 1, Op: OpSave, CourseID: "c1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ev.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestProcessOne_InvalidatesTarget(t *testing.T) {
	target := &recordingInvalidator{}
	c := NewConsumer(Config{Source: "me"}, nil, target)
	ctx := context.Background()

	ev := Event{Version: 1, Op: OpSave, CourseID: "c1", TS: time.Now(), Source: "other"}
	if err := c.ProcessOne(ctx, message(t, ev)); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if len(target.ids) != 1 || target.ids[0] != "c1" {
		t.Fatalf("invalidated %v", target.ids)
	}
}

func TestProcessOne_SkipsOwnEvents(t *testing.T) {
	target := &recordingInvalidator{}
	c := NewConsumer(Config{Source: "me"}, nil, target)

	ev := Event{Version: 1, Op: OpSave, CourseID: "c1", TS: time.Now(), Source: "me"}
	if err := c.ProcessOne(context.Background(), message(t, ev)); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if len(target.ids) != 0 {
		t.Fatalf("own event invalidated the cache: %v", target.ids)
	}
}

func TestProcessOne_DropsReplayedAndStaleEvents(t *testing.T) {
	target := &recordingInvalidator{}
	c := NewConsumer(Config{Source: "me"}, nil, target)
	ctx := context.Background()

	base := time.Now()
	fresh := Event{Version: 1, Op: OpSave, CourseID: "c1", TS: base, Source: "other"}
	if err := c.ProcessOne(ctx, message(t, fresh)); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	// Exact replay and an older event are both dropped.
	if err := c.ProcessOne(ctx, message(t, fresh)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	stale := fresh
	stale.TS = base.Add(-time.Second)
	if err := c.ProcessOne(ctx, message(t, stale)); err != nil {
		t.Fatalf("stale: %v", err)
	}
	if len(target.ids) != 1 {
		t.Fatalf("replayed events invalidated again: %v", target.ids)
	}

	// A newer event applies, and another course is tracked separately.
	newer := fresh
	newer.TS = base.Add(time.Second)
	if err := c.ProcessOne(ctx, message(t, newer)); err != nil {
		t.Fatalf("newer: %v", err)
	}
	other := Event{Version: 1, Op: OpDelete, CourseID: "c2", TS: base, Source: "other"}
	if err := c.ProcessOne(ctx, message(t, other)); err != nil {
		t.Fatalf("other course: %v", err)
	}
	if len(target.ids) != 3 {
		t.Fatalf("invalidations = %v, want c1, c1, c2", target.ids)
	}
}

func TestProcessOne_RejectsGarbage(t *testing.T) {
	target := &recordingInvalidator{}
	c := NewConsumer(Config{}, nil, target)

	bad := &sarama.ConsumerMessage{Value: []byte("{not json")}
	if err := c.ProcessOne(context.Background(), bad); err == nil {
		t.Fatalf("garbage message should error")
	}
	invalid := message(t, Event{Version: 7, Op: OpSave, CourseID: "c1", TS: time.Now()})
	if err := c.ProcessOne(context.Background(), invalid); err == nil {
		t.Fatalf("invalid event should error")
	}
	if len(target.ids) != 0 {
		t.Fatalf("bad messages reached the target: %v", target.ids)
	}
}
