package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafkago.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes domain events to a single topic, keyed by aggregate so
// events for one record stay ordered within a partition.
type Publisher struct {
	writer MessageWriter
}

// NewWriter builds a hash-balanced writer for topic. With async set, write
// errors are only reported through the completion log.
func NewWriter(brokers []string, topic string, async bool) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        async,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				slog.Error("Kafka delivery failed", "topic", topic, "messages", len(messages), "error", err)
			}
		},
	}
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Publish sends payload with the event type carried as a header.
func (p *Publisher) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "aggregate_type", Value: []byte("payroll_record")},
		},
		Time: time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
