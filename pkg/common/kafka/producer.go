package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/healthflow/platform/pkg/common/config"
	"github.com/healthflow/platform/pkg/common/logger"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a writer for one topic. The Hash balancer routes every
// message with the same key to the same partition, which is what preserves
// per-patient ordering across the pipeline.
func NewProducer(cfg *config.Config, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// Publish serializes the payload and writes it keyed by key.
func (p *Producer) Publish(ctx context.Context, key string, eventType string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"key":        key,
			"event_type": eventType,
			"topic":      p.writer.Topic,
		}).Error("Failed to publish message")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":        key,
		"event_type": eventType,
		"topic":      p.writer.Topic,
	}).Info("Message published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
