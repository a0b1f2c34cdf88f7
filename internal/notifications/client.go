package notifications

import (
	"context"
	"errors"
	"time"

	"posterboard/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Keepalive for subscriber sockets. Pings go out well inside the pong
// deadline so an idle viewer is not dropped.
const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingEvery    = pongTimeout * 9 / 10

	// viewers only ever send control frames
	readLimit  = 1024
	sendBuffer = 256
)

var (
	errClientClosed = errors.New("subscriber closed")
	errSendFull     = errors.New("subscriber send buffer full")
)

var dropNotice = []byte(`{"type":"` + EventDropped + `","payload":{"reason":"buffer_full"}}`)

// WSHub is what a Client needs from the hub that owns it.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one viewer socket. The hub writes encoded events into Send and
// WritePump forwards them; ReadPump only watches for the peer going away.
type Client struct {
	ID   string
	Hub  WSHub
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(hub WSHub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) extendReadDeadline() error {
	return c.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
}

// ReadPump blocks until the socket fails or the peer closes it, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.extendReadDeadline()
	c.Conn.SetPongHandler(func(string) error { return c.extendReadDeadline() })

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure,
		) {
			observability.NewWSLogger(c.Hub.Name()).LogError(context.Background(), c.ID, "", err, "read")
		}
		return
	}
}

// WritePump forwards queued events and keeps the socket alive with pings.
// It sends a close frame once the hub closes Send.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = c.Conn.Close()
	}()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case msg, open := <-c.Send:
			if !open {
				_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, payload = websocket.TextMessage, msg
		case <-ping.C:
		}

		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.Conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// TrySend queues msg without blocking. When the buffer is full msg is lost
// and a dropped notice is queued in its place, if there is room, so the
// viewer knows to re-fetch. Sending after the hub closed the client reports
// errClientClosed.
func (c *Client) TrySend(msg []byte) (err error) {
	defer func() {
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
			err = errClientClosed
		}
	}()

	select {
	case c.Send <- msg:
		return nil
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	select {
	case c.Send <- dropNotice:
	default:
	}
	return errSendFull
}
