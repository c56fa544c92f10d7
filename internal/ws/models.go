package ws

import (
	"encoding/json"

	"github.com/skewerchess/skewer/internal/models"
)

type Incoming struct {
	Event string          `json:"event"`
	ID    int             `json:"id"`
	Data  json.RawMessage `json:"data"`
}

type Outgoing struct {
	ID   int `json:"id"`
	Data any `json:"data"`
}

// NewGameRequest starts a game against the engine.
type NewGameRequest struct {
	EngineColor string `json:"engine_color"`
}

// MoveRequest plays the player's move, in coordinate or standard algebraic
// notation.
type MoveRequest struct {
	Move string `json:"move"`
}

// GameState describes the game after a state change. EngineMove, Score and
// Depth are only set when the engine just moved.
type GameState struct {
	GameID       string   `json:"game_id"`
	FEN          string   `json:"fen"`
	Turn         string   `json:"turn"`
	Moves        []string `json:"moves"`
	EngineMove   string   `json:"engine_move,omitempty"`
	Score        float64  `json:"score"`
	Depth        int      `json:"depth"`
	WhiteClockMs int64    `json:"white_clock_ms"`
	BlackClockMs int64    `json:"black_clock_ms"`
	Finished     bool     `json:"finished"`
	Outcome      string   `json:"outcome,omitempty"`
	Method       string   `json:"method,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// LookupRequest asks for stored analyses of positions.
type LookupRequest struct {
	Positions []models.NormalizedFEN `json:"positions"`
}

// LookupResponse carries the stored analyses that were found.
type LookupResponse struct {
	Analyses []models.Analysis `json:"analyses"`
}
