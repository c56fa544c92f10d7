package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
)

// LookupPositions handles position lookup requests.
func LookupPositions(c *fiber.Ctx) error {
	var payload models.LookupPositionsPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	repo := repository.NewAnalysisRepository(c)
	analyses, err := repo.LookupPositions(c.Context(), payload.Positions)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(analyses)
}

// SubmitAnalyses handles submission of analysis results.
func SubmitAnalyses(c *fiber.Ctx) error {
	var payload models.AnalysesPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	repo := repository.NewAnalysisRepository(c)
	if err := repo.SubmitAnalyses(c.Context(), payload); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetAnalysisStats returns per piece count and depth statistics.
func GetAnalysisStats(c *fiber.Ctx) error {
	repo := repository.NewAnalysisRepository(c)
	stats, err := repo.GetAnalysisStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
