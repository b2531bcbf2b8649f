package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/healthflow/platform/pkg/common/config"
	"github.com/healthflow/platform/pkg/common/logger"
)

type Consumer struct {
	reader *kafka.Reader
}

// Handler processes one message. A returned error means the message is
// malformed or otherwise unprocessable; the consumer logs it and moves on.
// The offset is committed either way, so a bad message is dropped rather
// than redelivered forever.
type Handler func(ctx context.Context, key string, value []byte) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader}
}

// Consume runs the blocking fetch loop, one message at a time. Fetch errors
// are transient (broker unreachable) and retried on the next iteration; the
// loop only exits when the context is cancelled.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Log.WithError(err).Error("Failed to fetch message")
				continue
			}

			if err := handler(ctx, string(message.Key), message.Value); err != nil {
				logger.Log.WithError(err).WithFields(map[string]interface{}{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("Dropping unprocessable message")
			}

			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Log.WithError(err).Error("Failed to commit message")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
