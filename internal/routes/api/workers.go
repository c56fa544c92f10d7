package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
)

// RegisterWorker handles worker registration.
func RegisterWorker(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	repo := repository.NewClientRepository(c)
	resp, err := repo.RegisterClient(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// lookupClientInRedis checks if the worker ID is registered.
func lookupClientInRedis(c *fiber.Ctx) (string, error) {
	clientID := c.Get("x-client-id")
	if clientID == "" {
		return "", errors.New("missing client ID")
	}

	repo := repository.NewClientRepository(c)
	if _, err := repo.GetClientStats(c.Context(), clientID); err != nil {
		return "", err
	}

	return clientID, nil
}

// Heartbeat handles worker heartbeat updates.
func Heartbeat(c *fiber.Ctx) error {
	clientID, err := lookupClientInRedis(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	repo := repository.NewClientRepository(c)
	if err = repo.UpdateHeartbeat(c.Context(), clientID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetWorkers returns statistics for all workers.
func GetWorkers(c *fiber.Ctx) error {
	repo := repository.NewClientRepository(c)
	stats, err := repo.GetClientStatsList(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

// GetJob handles job assignment to workers.
func GetJob(c *fiber.Ctx) error {
	clientID, err := lookupClientInRedis(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	repo := repository.NewAnalysisRepository(c)
	job, err := repo.GetJob(c.Context(), clientID)

	if errors.Is(err, repository.ErrNoJobsAvailable) {
		return c.Status(fiber.StatusOK).JSON(nil)
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

// SubmitJobResult stores a completed job's analysis and credits the worker.
func SubmitJobResult(c *fiber.Ctx) error {
	clientID, err := lookupClientInRedis(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var payload models.JobResult
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := payload.Analysis.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	analysisRepo := repository.NewAnalysisRepository(c)
	analyses := models.AnalysesPayload{Analyses: []models.Analysis{payload.Analysis}}
	if err := analysisRepo.SubmitAnalyses(c.Context(), analyses); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	clientRepo := repository.NewClientRepository(c)
	if err := clientRepo.CompleteJob(c.Context(), clientID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
