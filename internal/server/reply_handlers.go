package server

import (
	"posterboard/internal/models"
	"posterboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createReplyRequest struct {
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

// ListReplies handles GET /api/pins/:id/replies
// @Summary List replies oldest first
// @Tags replies
// @Produce json
// @Param id path string true "Pin ID"
// @Success 200 {array} models.Reply
// @Failure 404 {object} models.ErrorResponse
// @Router /pins/{id}/replies [get]
func (s *Server) ListReplies(c *fiber.Ctx) error {
	id, ok := pinID(c)
	if !ok {
		return nil
	}

	replies, err := s.replyService.ListReplies(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if replies == nil {
		replies = []models.Reply{}
	}
	return c.JSON(replies)
}

// CreateReply handles POST /api/pins/:id/replies. The reply reaches viewers
// through the pin's realtime topic; the response only acknowledges it.
// @Summary Reply to a pin
// @Tags replies
// @Accept json
// @Produce json
// @Param id path string true "Pin ID"
// @Param request body createReplyRequest true "Reply"
// @Success 202 {object} models.Reply
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /pins/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	id, ok := pinID(c)
	if !ok {
		return nil
	}

	var req createReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reply, err := s.replyService.CreateReply(c.UserContext(), service.CreateReplyInput{
		PinID:      id,
		AuthorName: req.AuthorName,
		Body:       req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(reply)
}
