// Package service holds the board's business rules between the HTTP layer
// and the repositories.
package service

import "context"

// Publisher announces committed changes to realtime subscribers.
// notifications.Broadcaster implements it.
type Publisher interface {
	Publish(ctx context.Context, eventType, topic string, payload any)
}

func publish(ctx context.Context, p Publisher, eventType, topic string, payload any) {
	if p == nil {
		return
	}
	p.Publish(ctx, eventType, topic, payload)
}
