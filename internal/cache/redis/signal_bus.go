package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/neonflash/neonflash/internal/domain"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub. It carries the
// ephemeral price, session, and loan events consumed by the WebSocket hub.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish JSON-encodes payload and sends it to a Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis: marshal %s payload: %w", channel, err)
	}
	if err := sb.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription over the given channels and
// returns a read-only message channel plus a cancel function. The message
// channel is closed when the context ends or cancel is called.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan domain.BusMessage, func(), error) {
	pubsub := sb.rdb.Subscribe(ctx, channels...)

	// Receive the subscription confirmation before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
	}

	out := make(chan domain.BusMessage, 128)
	done := make(chan struct{})
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- domain.BusMessage{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }
	return out, cancel, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
