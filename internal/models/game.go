package models

import (
	"errors"
	"fmt"
	"time"
)

// Game outcomes as stored in game records, in PGN result notation.
const (
	OutcomeWhiteWon = "1-0"
	OutcomeBlackWon = "0-1"
	OutcomeDraw     = "1/2-1/2"
	OutcomeUnknown  = "*"
)

// Engine colors as stored in game records.
const (
	EngineColorWhite = "white"
	EngineColorBlack = "black"
)

// GameRecord represents one finished engine game, stored for later review.
type GameRecord struct {
	ID          string    `json:"id"           db:"id"`
	EngineColor string    `json:"engine_color" db:"engine_color"`
	PGN         string    `json:"pgn"          db:"pgn"`
	Outcome     string    `json:"outcome"      db:"outcome"`
	Method      string    `json:"method"       db:"method"`
	StartedAt   time.Time `json:"started_at"   db:"started_at"`
	FinishedAt  time.Time `json:"finished_at"  db:"finished_at"`
}

// Validate checks if the game record is valid.
func (g *GameRecord) Validate() error {
	if g.EngineColor != EngineColorWhite && g.EngineColor != EngineColorBlack {
		return fmt.Errorf("engine color %q is invalid", g.EngineColor)
	}

	switch g.Outcome {
	case OutcomeWhiteWon, OutcomeBlackWon, OutcomeDraw, OutcomeUnknown:
	default:
		return fmt.Errorf("outcome %q is invalid", g.Outcome)
	}

	if g.PGN == "" {
		return errors.New("pgn is empty")
	}

	return nil
}
