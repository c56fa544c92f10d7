package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/routes/api"
	"github.com/skewerchess/skewer/internal/routes/play"
	"github.com/skewerchess/skewer/internal/routes/static"
	"github.com/skewerchess/skewer/internal/routes/stats"
	"github.com/skewerchess/skewer/internal/routes/version"
	"github.com/skewerchess/skewer/internal/routes/ws"
)

func rootHandler(c *fiber.Ctx) error {
	return c.Redirect("/play")
}

func SetupRoutes(app *fiber.App, cfg *config.ServerConfig) {
	// Serve API routes
	api.SetupRoutes(app)

	// Serve static files
	static.SetupRoutes(app, cfg)

	// Serve HTML pages
	play.SetupRoutes(app)
	stats.SetupRoutes(app)

	// Serve websocket game sessions
	ws.SetupRoutes(app)

	// Serve version info
	version.SetupRoutes(app)

	// Serve root page
	app.Get("/", rootHandler)
}
