package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/eventhive/eventhive/pkg/tracing"
)

// Publisher writes order notifications to a single topic. Every subscriber
// group sees every message, which is the fanout-broadcast shape; delivery
// is at-most-once per group and nothing is retried here.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			// Bounds the attempt so a stuck broker cannot stall the
			// purchase response.
			WriteTimeout: 3 * time.Second,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, payload []byte) error {
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
