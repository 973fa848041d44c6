package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the slice of kafka.Writer the poller needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Poller struct {
	tick   time.Duration
	batch  int
	source Source
	writer Writer
	logger *zap.Logger
}

// NewKafkaWriter builds the writer for the order events topic.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewPoller(source Source, writer Writer, logger *zap.Logger) *Poller {
	return &Poller{
		tick:   time.Second,
		batch:  100,
		source: source,
		writer: writer,
		logger: logger,
	}
}

// Run drains the outbox until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) publishPending(ctx context.Context) {
	evs, err := p.source.UnpublishedEvents(ctx, p.batch)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, ev := range evs {
		if err := p.publish(ctx, ev); err != nil {
			p.logger.Error("failed to publish event",
				zap.Int64("event_id", ev.ID),
				zap.String("event_type", ev.EventType),
				zap.Error(err))
			continue
		}

		if err := p.source.MarkEventPublished(ctx, ev.ID); err != nil {
			// Already on the wire; the next pass will retry the mark and the
			// consumer has to tolerate the duplicate.
			p.logger.Error("failed to mark event as published",
				zap.Int64("event_id", ev.ID),
				zap.Error(err))
		}
	}
}

func (p *Poller) publish(ctx context.Context, ev *Event) error {
	msg := kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
