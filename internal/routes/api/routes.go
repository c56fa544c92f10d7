package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/middleware"
)

// SetupRoutes sets up the API routes.
func SetupRoutes(app *fiber.App) {
	apiGroup := app.Group("/api", middleware.AuthOrToken())

	// Worker routes
	apiGroup.Post("/workers/register", RegisterWorker)
	apiGroup.Post("/workers/heartbeat", Heartbeat)
	apiGroup.Get("/workers", GetWorkers)
	apiGroup.Get("/workers/job", GetJob)
	apiGroup.Post("/workers/job-result", SubmitJobResult)

	// Position routes
	apiGroup.Post("/positions/analyses", SubmitAnalyses)
	apiGroup.Post("/positions/lookup", LookupPositions)
	apiGroup.Get("/positions/stats", GetAnalysisStats)

	// Engine routes
	apiGroup.Post("/analyze", Analyze)

	// Game routes
	apiGroup.Post("/games", SaveGame)
	apiGroup.Get("/games", ListGames)
	apiGroup.Get("/games/:id", GetGame)
}
