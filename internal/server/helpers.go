package server

import (
	"posterboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps a service error to its HTTP status and writes the body.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// pinID extracts the :id route parameter. Pin ids are UUIDs; anything else
// is answered with 400 and ok=false.
func pinID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid pin ID"))
		return "", false
	}
	return id, true
}
