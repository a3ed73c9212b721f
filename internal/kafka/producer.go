package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"event-in/internal/logger"
	"event-in/internal/notify"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes every change to the topic named after its type.
type Producer struct {
	Writer      MessageWriter
	TopicPrefix string
	Logger      *logger.Logger
}

func NewProducer(brokers []string, topicPrefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, TopicPrefix: topicPrefix, Logger: log}
}

// Topic returns the topic a change of type t is written to.
func (p *Producer) Topic(t notify.ChangeType) string {
	return TopicName(p.TopicPrefix, t)
}

// Notify streams the change to Kafka keyed by event id.
func (p *Producer) Notify(ctx context.Context, change notify.Change) error {
	msgBytes, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	topic := p.Topic(change.Type)
	p.Logger.Debug("KAFKA", fmt.Sprintf("Publishing to %s: %s", topic, string(msgBytes)))

	err = p.Writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(strconv.FormatInt(change.EventID, 10)),
			Value: msgBytes,
			Headers: []kafka.Header{
				{Key: "change-id", Value: []byte(change.ID)},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	p.Logger.LogNotify("kafka", string(change.Type), fmt.Sprintf("event %d sent to %s", change.EventID, topic))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
