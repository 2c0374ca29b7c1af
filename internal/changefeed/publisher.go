package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/fairwaylab/coursemapper/internal/observability"
)

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	log      *slog.Logger
}

// NewPublisher connects a synchronous producer. source identifies this
// instance so its own events can be skipped on consumption.
func NewPublisher(brokers []string, topic, source string, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, source: source, log: logger}, nil
}

func (p *Publisher) publish(op, courseID string) {
	ev := Event{
		Version:  1,
		Op:       op,
		CourseID: courseID,
		TS:       time.Now().UTC(),
		Source:   p.source,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		observability.IncChangefeedPublished(err)
		p.log.Error("encode change event", "err", err)
		return
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(courseID),
		Value: sarama.ByteEncoder(body),
	})
	observability.IncChangefeedPublished(err)
	if err != nil {
		// Best effort: the feed only accelerates cache invalidation.
		p.log.Warn("publish change event", "course_id", courseID, "op", op, "err", err)
	}
}

// CourseSaved and CourseDeleted implement gateway.Notifier.
func (p *Publisher) CourseSaved(_ context.Context, courseID string)   { p.publish(OpSave, courseID) }
func (p *Publisher) CourseDeleted(_ context.Context, courseID string) { p.publish(OpDelete, courseID) }

func (p *Publisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close producer: %w", err)
	}
	return nil
}
