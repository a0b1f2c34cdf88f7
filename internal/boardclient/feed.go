package boardclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"posterboard/internal/board"
	"posterboard/internal/models"
	"posterboard/internal/notifications"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const eventBuffer = 64

// ErrNoAck is returned when the server does not confirm a subscription.
var ErrNoAck = errors.New("boardclient: subscription not acknowledged")

func defaultDialer(timeout time.Duration) *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
}

// SubscribeBoard opens the board-wide feed of pin changes.
func (c *Client) SubscribeBoard(ctx context.Context) (board.Subscription, error) {
	return c.subscribe(ctx, "/api/ws/board")
}

// SubscribeReplies opens the reply feed of one pin.
func (c *Client) SubscribeReplies(ctx context.Context, pinID string) (board.Subscription, error) {
	return c.subscribe(ctx, "/api/ws/pins/"+url.PathEscape(pinID))
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

func (c *Client) subscribe(ctx context.Context, path string) (board.Subscription, error) {
	target, err := c.wsURL(path)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("websocket dial %s: %v", path, err)}
		}
		return nil, fmt.Errorf("websocket dial %s: %w", path, err)
	}

	if err := awaitAck(ctx, conn, c.dialer.HandshakeTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}

	sub := &subscription{
		conn:   conn,
		events: make(chan board.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go sub.readLoop()
	return sub, nil
}

func awaitAck(ctx context.Context, conn *websocket.Conn, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAck, err)
	}
	var ev notifications.Event
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type != notifications.EventSubscribed {
		return ErrNoAck
	}
	return nil
}

type subscription struct {
	conn   *websocket.Conn
	events chan board.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan board.Event { return s.events }

// Close ends the subscription. Events is closed once the reader exits.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *subscription) readLoop() {
	defer close(s.events)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("board feed closed", "error", err)
			}
			return
		}

		ev, ok := decodeEvent(raw)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// decodeEvent turns a wire envelope into a board event. Unknown types and
// malformed payloads are skipped.
func decodeEvent(raw []byte) (board.Event, bool) {
	var env notifications.Event
	if err := json.Unmarshal(raw, &env); err != nil {
		return board.Event{}, false
	}

	switch env.Type {
	case notifications.EventPinCreated:
		var pin models.Pin
		if err := json.Unmarshal(env.Payload, &pin); err != nil || pin.ID == "" {
			return board.Event{}, false
		}
		return board.Event{Type: board.EventPinCreated, Pin: &pin, PinID: pin.ID}, true
	case notifications.EventPinDeleted:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ID == "" {
			return board.Event{}, false
		}
		return board.Event{Type: board.EventPinDeleted, PinID: p.ID}, true
	case notifications.EventReplyCreated:
		var reply models.Reply
		if err := json.Unmarshal(env.Payload, &reply); err != nil || reply.ID == "" {
			return board.Event{}, false
		}
		return board.Event{Type: board.EventReplyCreated, Reply: &reply, PinID: reply.PinID}, true
	case notifications.EventDropped:
		return board.Event{Type: board.EventDropped}, true
	default:
		return board.Event{}, false
	}
}
