package play

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/config"
)

func SetupRoutes(app *fiber.App) {
	app.Get("/play", Page)
}

// Page serves the play.html page.
func Page(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.ServerConfig) //nolint: errcheck

	return c.SendFile(filepath.Join(cfg.StaticDir, "play.html"))
}
