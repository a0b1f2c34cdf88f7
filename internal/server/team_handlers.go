package server

import (
	"errors"
	"time"

	"posterboard/internal/middleware"
	"posterboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

type unlockRequest struct {
	Secret string `json:"secret"`
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UnlockTeam handles POST /api/team/unlock
// @Summary Exchange the team secret for a token
// @Tags team
// @Accept json
// @Produce json
// @Param request body unlockRequest true "Secret"
// @Success 200 {object} unlockResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /team/unlock [post]
func (s *Server) UnlockTeam(c *fiber.Ctx) error {
	var req unlockRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, expires, err := s.team.Unlock(req.Secret)
	if errors.Is(err, middleware.ErrWrongSecret) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Wrong team secret"))
	}
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(unlockResponse{Token: token, ExpiresAt: expires})
}
