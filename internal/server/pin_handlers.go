package server

import (
	"posterboard/internal/middleware"
	"posterboard/internal/models"
	"posterboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPinRequest struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	AuthorName string  `json:"author_name"`
	Body       string  `json:"body"`
}

// ListPins handles GET /api/pins
// @Summary List pins
// @Tags pins
// @Produce json
// @Success 200 {array} models.Pin
// @Router /pins [get]
func (s *Server) ListPins(c *fiber.Ctx) error {
	pins, err := s.pinService.ListPins(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if pins == nil {
		pins = []models.Pin{}
	}
	return c.JSON(pins)
}

// ListPinsForTeam handles GET /api/pins/list
// @Summary List pins for the list view
// @Description Newest first with reply counts when available
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Pin
// @Failure 401 {object} models.ErrorResponse
// @Router /pins/list [get]
func (s *Server) ListPinsForTeam(c *fiber.Ctx) error {
	pins, err := s.pinService.ListPinsWithReplyCounts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if pins == nil {
		pins = []models.Pin{}
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(pins)
}

// CreatePin handles POST /api/pins
// @Summary Create pin
// @Tags pins
// @Accept json
// @Produce json
// @Param request body createPinRequest true "Pin"
// @Success 201 {object} models.Pin
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /pins [post]
func (s *Server) CreatePin(c *fiber.Ctx) error {
	var req createPinRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pin, err := s.pinService.CreatePin(c.UserContext(), service.CreatePinInput{
		X:          req.X,
		Y:          req.Y,
		AuthorName: req.AuthorName,
		Body:       req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pin)
}

// DeletePin handles DELETE /api/pins/:id
// @Summary Delete pin
// @Description A delete that removes nothing answers 403 DELETE_DENIED
// @Tags pins
// @Param id path string true "Pin ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /pins/{id} [delete]
func (s *Server) DeletePin(c *fiber.Ctx) error {
	id, ok := pinID(c)
	if !ok {
		return nil
	}

	err := s.pinService.DeletePin(c.UserContext(), service.DeletePinInput{
		ID:   id,
		Team: middleware.IsTeam(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
