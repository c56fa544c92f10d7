package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/worker"
)

func main() {
	config.SetLogLevel()

	verbose := flag.Bool("verbose", false, "log requests and responses")
	flag.Parse()

	cfg := config.LoadWorkerConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := worker.RunPool(ctx, cfg, *verbose)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Worker pool failed: %v", err)
		os.Exit(1)
	}
}
