package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fairwaylab/coursemapper/internal/observability"
)

// Invalidator drops a course from a local read cache.
type Invalidator interface {
	Invalidate(courseID string)
}

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	Source              string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	InitialOffsetOldest bool
}

func (c *Config) applyDefaults() {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 10 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
}

// eventDedupe drops replayed or out-of-order events per course, keyed
// on the event timestamp.
type eventDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, int64]
}

func newEventDedupe(size int) *eventDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, int64](size)
	return &eventDedupe{lru: c}
}

func (d *eventDedupe) shouldApply(courseID string, tsNano int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(courseID); ok && tsNano <= last {
		return false
	}
	d.lru.Add(courseID, tsNano)
	return true
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	target Invalidator
	dedupe *eventDedupe
}

func NewConsumer(cfg Config, logger *slog.Logger, target Invalidator) *Consumer {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		target: target,
		dedupe: newEventDedupe(0),
	}
}

// Start consumes change events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.target == nil {
		return fmt.Errorf("changefeed consumer: missing invalidation target")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("change feed consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("change feed consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single change event message.
func (c *Consumer) ProcessOne(_ context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncChangefeedConsumed("decode_error")
		return fmt.Errorf("json decode: %w", err)
	}
	if err := ev.Validate(); err != nil {
		observability.IncChangefeedConsumed("invalid")
		return fmt.Errorf("invalid event: %w", err)
	}
	if ev.Source != "" && ev.Source == c.cfg.Source {
		observability.IncChangefeedConsumed("own")
		return nil
	}
	if !c.dedupe.shouldApply(ev.CourseID, ev.TS.UnixNano()) {
		observability.IncChangefeedConsumed("stale")
		return nil
	}

	c.target.Invalidate(ev.CourseID)
	observability.IncChangefeedConsumed("applied")
	c.logger.Debug("invalidated course from change feed",
		"course_id", ev.CourseID, "op", ev.Op, "source", ev.Source)
	return nil
}

type groupHandler struct {
	process func(ctx context.Context, msg *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		// Errors are per-message; keep consuming.
		_ = h.process(sess.Context(), msg)
		sess.MarkMessage(msg, "")
	}
	return nil
}
