package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"event-in/internal/logger"
	"event-in/internal/notify"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads changes back from the change topics.
type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer joins groupID on every change topic under topicPrefix.
func NewConsumer(brokers []string, topicPrefix, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: Topics(topicPrefix),
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Start hands every decoded change to handler until ctx is cancelled.
// Messages that do not decode are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(notify.Change)) error {
	c.Logger.Info("KAFKA", "Consumer started")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var change notify.Change
		if err := json.Unmarshal(msg.Value, &change); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message from %s: %v", msg.Topic, err))
			continue
		}

		c.Logger.Debug("KAFKA", fmt.Sprintf("Received %s for event %d", change.Type, change.EventID))
		handler(change)
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
