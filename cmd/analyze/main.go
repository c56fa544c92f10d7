package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/skewerchess/skewer/internal/board"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/models"
)

func main() {
	config.SetLogLevel()

	fen := flag.String("fen", models.StartingFEN, "the position to analyze")
	budget := flag.Duration("budget", 5*time.Second, "thinking time")
	depth := flag.Int("depth", 0, "cap the search depth, 0 keeps the default cap")
	flag.Parse()

	nfen, err := models.NewNormalizedFEN(*fen)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	pos, err := board.NewPosition(nfen.FullFEN())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	cfg.DeadlineCeiling = *budget
	if *depth > 0 {
		cfg.MaxDepth = *depth
	}

	eng := engine.NewEngine(cfg)

	start := time.Now()
	result, err := eng.Think(pos, pos.Turn(), engine.NewTurnClock(*budget+cfg.PanicReserve))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	for _, line := range nfen.AsciiArtLines() {
		fmt.Println(line)
	}

	fmt.Printf("best move: %s\n", result.Move)
	fmt.Printf("score:     %+.2f\n", result.Score)
	fmt.Printf("depth:     %d\n", result.Depth)
	fmt.Printf("nodes:     %d\n", result.Nodes)
	fmt.Printf("time:      %.2fs\n", elapsed.Seconds())
}
