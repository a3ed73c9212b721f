package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"event-in/internal/logger"
	"event-in/internal/notify"
)

// Publisher sends every change as JSON on a pub/sub channel.
type Publisher struct {
	Client  *redis.Client
	Channel string
	Logger  *logger.Logger
}

func NewPublisher(client *redis.Client, channel string, log *logger.Logger) *Publisher {
	return &Publisher{
		Client:  client,
		Channel: channel,
		Logger:  log,
	}
}

func (p *Publisher) Notify(ctx context.Context, change notify.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	receivers, err := p.Client.Publish(ctx, p.Channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", p.Channel, err)
	}
	p.Logger.LogNotify("redis", string(change.Type), fmt.Sprintf("event %d published to %s (%d subscribers)", change.EventID, p.Channel, receivers))
	return nil
}

// Subscribe decodes changes from the channel until ctx is done.
// The returned channel is closed when the subscription ends.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan notify.Change, error) {
	pubsub := p.Client.Subscribe(ctx, p.Channel)
	// Wait for the subscription to be confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", p.Channel, err)
	}

	out := make(chan notify.Change, 10)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change notify.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					p.Logger.Warn("REDIS", fmt.Sprintf("Dropping undecodable message on %s: %v", msg.Channel, err))
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
