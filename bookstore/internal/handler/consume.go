package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/pkg/kafka"
)

type saveEvent func(ctx context.Context, event kafka.BookEvent) error

// Consumer writes book events from the broker into the history table.
// A message is marked only after its row is stored. When the store keeps
// failing the claim stops, so the group resumes from the last committed
// offset and the event is delivered again.
type Consumer struct {
	saveEventHandler saveEvent
	log              *zap.Logger
	saveAttempts     int
	retryBackoff     time.Duration
}

type ConsumerOption func(*Consumer)

// WithSaveRetry bounds how often one event is stored before the claim gives up.
func WithSaveRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if attempts > 0 {
			c.saveAttempts = attempts
		}
		c.retryBackoff = backoff
	}
}

func NewConsumer(save saveEvent, log *zap.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		saveEventHandler: save,
		log:              log.Named("consumer"),
		saveAttempts:     3,
		retryBackoff:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.BookEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				// poison message, skip it
				consumer.log.Error("decode book event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}
			if event.Timestamp.IsZero() {
				event.Timestamp = message.Timestamp
			}

			if err := consumer.save(session.Context(), event); err != nil {
				consumer.log.Error("consumer.saveEventHandler",
					zap.Int64("offset", message.Offset), zap.Error(err))
				return errors.Wrapf(err, "store event at offset %d", message.Offset)
			}

			consumer.log.Debug("event stored",
				zap.String("type", string(event.EventType)),
				zap.String("bookId", event.BookID),
				zap.Int64("offset", message.Offset))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (consumer *Consumer) save(ctx context.Context, event kafka.BookEvent) error {
	var err error
	for attempt := 1; attempt <= consumer.saveAttempts; attempt++ {
		if err = consumer.saveEventHandler(ctx, event); err == nil {
			return nil
		}
		if attempt == consumer.saveAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(consumer.retryBackoff * time.Duration(attempt)):
		}
	}
	return err
}
