package notifications

import (
	"context"
	"strings"
	"sync"

	"posterboard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Hub tracks websocket clients by topic. A client normally holds one topic:
// the board topic for the session, or one pin's replies topic for as long as
// that pin's detail view is open.
type Hub struct {
	mu sync.RWMutex

	// topic -> clients
	topics map[string]map[*Client]struct{}

	// client -> topics it holds
	clients map[*Client]map[string]struct{}

	log *observability.WSLogger
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		log:     observability.NewWSLogger("board hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "board hub" }

// Register creates a client for conn and subscribes it to topic.
func (h *Hub) Register(conn *websocket.Conn, topic string) *Client {
	client := NewClient(h, conn)
	h.Subscribe(client, topic)
	return client
}

// Subscribe adds client to topic. The subscribed ack is queued before the
// client becomes visible to Deliver, so it is always the first event a
// subscriber reads.
func (h *Hub) Subscribe(client *Client, topic string) {
	var ack []byte
	if ev, err := NewEvent(EventSubscribed, topic, map[string]string{"topic": topic}); err == nil {
		ack, _ = ev.Encode()
	}

	h.mu.Lock()
	if ack != nil {
		_ = client.TrySend(ack)
	}
	if h.clients[client] == nil {
		h.clients[client] = make(map[string]struct{})
	}
	h.clients[client][topic] = struct{}{}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][client] = struct{}{}
	h.mu.Unlock()

	observability.WebSocketConnections.WithLabelValues(scopeOf(topic)).Inc()
	h.log.LogConnect(context.Background(), client.ID, topic)
}

// Unsubscribe removes client from topic only.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	removed := h.removeLocked(client, topic)
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnections.WithLabelValues(scopeOf(topic)).Dec()
	}
}

func (h *Hub) removeLocked(client *Client, topic string) bool {
	subs, ok := h.topics[topic]
	if !ok {
		return false
	}
	if _, ok := subs[client]; !ok {
		return false
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	if held, ok := h.clients[client]; ok {
		delete(held, topic)
	}
	return true
}

// UnregisterClient drops client from every topic and closes its send
// channel. Calling it twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	held, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	topics := make([]string, 0, len(held))
	for topic := range held {
		topics = append(topics, topic)
	}
	for _, topic := range topics {
		h.removeLocked(client, topic)
	}
	delete(h.clients, client)
	close(client.Send)
	h.mu.Unlock()

	for _, topic := range topics {
		observability.WebSocketConnections.WithLabelValues(scopeOf(topic)).Dec()
		h.log.LogDisconnect(context.Background(), client.ID, topic, "unregistered")
	}
}

// Deliver sends raw to every local subscriber of topic.
func (h *Hub) Deliver(topic string, raw []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.TrySend(raw); err == nil {
			sent++
		}
	}
	return sent
}

// SubscriberCount reports how many local clients hold topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Shutdown closes every client.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.UnregisterClient(c)
	}
	return nil
}

func scopeOf(topic string) string {
	if strings.HasPrefix(topic, repliesPrefix) {
		return "detail"
	}
	return "board"
}
