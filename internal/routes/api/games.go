package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
)

// SaveGame stores a finished game record.
func SaveGame(c *fiber.Ctx) error {
	var record models.GameRecord
	if err := c.BodyParser(&record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := record.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	repo := repository.NewGameRepository(c)
	if err := repo.SaveGame(c.Context(), record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

// ListGames returns recently finished games, newest first.
func ListGames(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")

	repo := repository.NewGameRepository(c)
	games, err := repo.ListGames(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(games)
}

// GetGame returns a single stored game by ID.
func GetGame(c *fiber.Ctx) error {
	id := c.Params("id")

	repo := repository.NewGameRepository(c)
	game, err := repo.GetGame(c.Context(), id)

	if errors.Is(err, repository.ErrGameNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Game not found",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(game)
}
