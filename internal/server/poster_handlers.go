package server

import (
	"io"

	"posterboard/internal/models"
	"posterboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPoster handles GET /api/poster
// @Summary Current poster
// @Tags poster
// @Produce json
// @Success 200 {object} models.PosterInfo
// @Failure 404 {object} models.ErrorResponse
// @Router /poster [get]
func (s *Server) GetPoster(c *fiber.Ctx) error {
	info, err := s.posterService.Current(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(info)
}

// UploadPoster handles POST /api/poster
// @Summary Replace the poster
// @Tags poster
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 201 {object} models.PosterInfo
// @Failure 400 {object} models.ErrorResponse
// @Router /poster [post]
func (s *Server) UploadPoster(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read file"))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read file"))
	}

	info, err := s.posterService.Upload(c.UserContext(), service.UploadPosterInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}
