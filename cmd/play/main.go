package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/game"
	"github.com/skewerchess/skewer/internal/models"
)

func main() {
	config.SetLogLevel()

	color := flag.String("color", "white", "the side you play, white or black")
	perSide := flag.Duration("clock", game.DefaultTimePerSide, "time budget per side")
	flag.Parse()

	var engineColor chess.Color
	switch strings.ToLower(*color) {
	case "white":
		engineColor = chess.Black
	case "black":
		engineColor = chess.White
	default:
		fmt.Println("color must be white or black")
		os.Exit(1)
	}
	playerColor := engineColor.Other()

	session := game.NewSession(engine.NewEngine(engine.DefaultConfig()), engineColor, nil)
	session.SetClock(*perSide)

	fmt.Printf("You play %s with %s on the clock.\n", playerColor.Name(), *perSide)
	fmt.Println("Enter moves like e2e4 or Nf3, or 'resign'.")

	reader := bufio.NewReader(os.Stdin)

	for !session.Finished() {
		printBoard(session)

		if session.Turn() == engineColor {
			result, err := session.EngineMove(context.Background())
			if err != nil {
				if !session.Finished() {
					fmt.Printf("Engine failed to move: %v\n", err)
				}
				break
			}
			fmt.Printf("Engine plays %s (score %+.2f, depth %d)\n", result.Move, result.Score, result.Depth)
			continue
		}

		fmt.Printf("Your move (%s left): ", session.Remaining(playerColor).Round(time.Second))
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)

		if input == "" {
			continue
		}
		if input == "resign" {
			session.Resign(playerColor)
			break
		}

		if err := session.ApplyMove(input); err != nil {
			if !session.Finished() {
				fmt.Println(err)
			}
			continue
		}
	}

	printBoard(session)

	outcome, method := session.Status()
	fmt.Printf("Game over: %s", outcome)
	if method != "" {
		fmt.Printf(" (%s)", method)
	}
	fmt.Println()
	fmt.Println(session.Record().PGN)
}

func printBoard(session *game.Session) {
	fmt.Println()

	nfen, err := models.NewNormalizedFEN(session.FEN())
	if err != nil {
		return
	}
	for _, line := range nfen.AsciiArtLines() {
		fmt.Println(line)
	}
}
