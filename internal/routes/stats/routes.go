package stats

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/middleware"
)

func SetupRoutes(app *fiber.App) {
	statsGroup := app.Group("/stats", middleware.BasicAuth())
	statsGroup.Get("/", statsPage)
}

// statsPage serves the stats.html page.
func statsPage(c *fiber.Ctx) error {
	cfg, ok := c.Locals("config").(*config.ServerConfig)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to get config")
	}

	return c.SendFile(filepath.Join(cfg.StaticDir, "stats.html"))
}
