package main

import (
	"log"

	"github.com/skewerchess/skewer/internal"
	"github.com/skewerchess/skewer/internal/config"
)

func main() {
	config.SetLogLevel()

	// Setup app
	app, cfg := internal.SetupApp()

	// Start server
	address := cfg.ServerHost + ":" + cfg.ServerPort
	log.Fatal(app.Listen(address))
}
