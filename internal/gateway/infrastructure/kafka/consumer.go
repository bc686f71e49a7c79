// Package kafka consumes order notifications for the gateway's next-event
// read model.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/eventhive/eventhive/internal/gateway/application"
	"github.com/eventhive/eventhive/pkg/idempotency"
	"github.com/eventhive/eventhive/pkg/tracing"
)

type Consumer struct {
	log       *slog.Logger
	reader    *kafka.Reader
	nextEvent *application.NextEventService
	idem      *idempotency.Store
}

func NewConsumer(log *slog.Logger, brokers []string, topic string, nextEvent *application.NextEventService, idem *idempotency.Store) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: "gateway-next-event",
	})
	return &Consumer{log: log, reader: reader, nextEvent: nextEvent, idem: idem}
}

type orderCreated struct {
	OrderID  string `json:"order_id"`
	EventID  string `json:"event_id"`
	Username string `json:"username"`
}

// Run fetches messages until the context is canceled. Handling failures are
// logged and the message is committed anyway; the read model tolerates
// missed updates.
func (c *Consumer) Run(ctx context.Context) error {
	tracer := otel.Tracer("gateway-consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := tracer.Start(msgCtx, "HandleOrderCreated")

		c.handle(msgCtx, msg)

		span.End()
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit offset failed", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("dedup check failed", "key", key, "err", err)
	} else if seen {
		return
	}

	var payload orderCreated
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		c.log.Error("malformed order notification", "offset", msg.Offset, "err", err)
		return
	}
	if payload.Username == "" || payload.EventID == "" {
		c.log.Error("order notification missing fields", "order_id", payload.OrderID)
		return
	}

	if err := c.nextEvent.Apply(ctx, payload.Username, payload.EventID); err != nil {
		c.log.Error("apply order notification failed",
			"order_id", payload.OrderID,
			"username", payload.Username,
			"event_id", payload.EventID,
			"err", err,
		)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
