package server

import (
	"posterboard/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// requirePin answers 404 before the upgrade when the pin does not exist.
func (s *Server) requirePin(c *fiber.Ctx) error {
	id, ok := pinID(c)
	if !ok {
		return nil
	}
	if _, err := s.pinService.GetPin(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.Next()
}

// BoardSocket streams pin_created and pin_deleted events.
func (s *Server) BoardSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		s.serveTopic(conn, notifications.TopicPins)
	})
}

// RepliesSocket streams reply_created events for one pin.
func (s *Server) RepliesSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		s.serveTopic(conn, notifications.RepliesTopic(conn.Params("id")))
	})
}

func (s *Server) serveTopic(conn *websocket.Conn, topic string) {
	client := s.hub.Register(conn, topic)
	go client.WritePump()
	client.ReadPump()
}
