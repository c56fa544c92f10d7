package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/board"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
)

const (
	defaultAnalyzeBudget = 5 * time.Second
	maxAnalyzeBudget     = 30 * time.Second
)

// Analyze searches a position on the server and returns the verdict.
func Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	nfen, err := models.NewNormalizedFEN(req.FEN)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	budget := defaultAnalyzeBudget
	if req.BudgetMs > 0 {
		budget = time.Duration(req.BudgetMs) * time.Millisecond
	}
	if budget > maxAnalyzeBudget {
		budget = maxAnalyzeBudget
	}

	repo := repository.NewAnalysisRepository(c)

	// A stored verdict beats searching again
	stored, err := repo.LookupPositions(c.Context(), []models.NormalizedFEN{nfen})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(stored) > 0 {
		return c.Status(fiber.StatusOK).JSON(stored[0])
	}

	pos, err := board.NewPosition(nfen.FullFEN())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	eng := engine.NewEngine(engine.DefaultConfig())
	result, err := eng.Think(pos, pos.Turn(), engine.NewTurnClock(budget))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	analysis := models.Analysis{
		Position: nfen,
		Depth:    result.Depth,
		Score:    result.Score,
		Nodes:    result.Nodes,
	}
	if result.Move != nil {
		analysis.BestMove = result.Move.String()
	}

	// Keep what we just computed. Failures only cost a book entry, not the response.
	if analysis.Validate() == nil {
		payload := models.AnalysesPayload{Analyses: []models.Analysis{analysis}}
		if err := repo.SubmitAnalyses(c.Context(), payload); err != nil {
			slog.Error("Failed to store analysis", "error", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(analysis)
}
