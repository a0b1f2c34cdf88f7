package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"posterboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "board:"

// Channel derives the Redis channel name for a topic.
func Channel(topic string) string {
	return channelPrefix + topic
}

// Notifier publishes encoded events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Publish sends raw to the topic's channel.
func (n *Notifier) Publish(ctx context.Context, topic string, raw []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, Channel(topic), raw).Err()
}

// StartSubscriber subscribes to every board channel and calls onMessage with
// the topic and payload of each message until ctx is done. It returns once
// the subscription is confirmed.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(topic string, payload []byte)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in board subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, channelPrefix), []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}

// Broadcaster publishes board events. With Redis every instance receives the
// event through its subscriber and delivers it to its own hub; without Redis
// the event goes straight to the local hub.
type Broadcaster struct {
	hub      *Hub
	notifier *Notifier
}

func NewBroadcaster(hub *Hub, notifier *Notifier) *Broadcaster {
	return &Broadcaster{hub: hub, notifier: notifier}
}

// Start wires the Redis subscriber to the local hub.
func (b *Broadcaster) Start(ctx context.Context) error {
	return b.notifier.StartSubscriber(ctx, func(topic string, payload []byte) {
		b.hub.Deliver(topic, payload)
	})
}

// Publish encodes and fans out an event. Errors are logged, not returned:
// the write that produced the event has already succeeded.
func (b *Broadcaster) Publish(ctx context.Context, eventType, topic string, payload any) {
	if b == nil {
		return
	}
	ev, err := NewEvent(eventType, topic, payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode realtime event", "type", eventType, "error", err)
		return
	}
	raw, err := ev.Encode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode realtime event", "type", eventType, "error", err)
		return
	}
	observability.WebSocketEvents.WithLabelValues(eventType).Inc()

	if b.notifier.Enabled() {
		err := b.notifier.Publish(ctx, topic, raw)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "redis publish failed, delivering locally", "topic", topic, "error", err)
	}
	b.hub.Deliver(topic, raw)
}
