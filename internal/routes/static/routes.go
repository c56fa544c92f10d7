package static

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/skewerchess/skewer/internal/config"
)

// staticHandler serves static files.
func staticHandler(cfg *config.ServerConfig) fiber.Handler {
	return filesystem.New(filesystem.Config{
		Root:   http.Dir(cfg.StaticDir),
		Browse: false,
	})
}

func SetupRoutes(app *fiber.App, cfg *config.ServerConfig) {
	app.Use("/static", staticHandler(cfg))
}
