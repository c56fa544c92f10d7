package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const normalizedFieldCount = 4

// NormalizedFEN identifies a chess position by the four FEN fields that
// matter for analysis lookups: piece placement, side to move, castling
// rights and en passant square. The move counters are stripped, so
// transpositions reached at different game lengths share one identity.
type NormalizedFEN struct {
	fen string
}

// NewNormalizedFEN creates a normalized FEN from a four or six field FEN
// string, validating it against the chess rules.
func NewNormalizedFEN(s string) (NormalizedFEN, error) {
	fields := strings.Fields(s)
	if len(fields) != normalizedFieldCount && len(fields) != 6 {
		return NormalizedFEN{}, fmt.Errorf("FEN must have 4 or 6 fields, got %d", len(fields))
	}

	full := strings.Join(fields, " ")
	if len(fields) == normalizedFieldCount {
		full += " 0 1"
	}

	if _, err := chess.FEN(full); err != nil {
		return NormalizedFEN{}, fmt.Errorf("invalid FEN: %w", err)
	}

	return NormalizedFEN{fen: strings.Join(fields[:normalizedFieldCount], " ")}, nil
}

// NewNormalizedFENMust creates a normalized FEN and panics if the input is
// invalid.
func NewNormalizedFENMust(s string) NormalizedFEN {
	nfen, err := NewNormalizedFEN(s)
	if err != nil {
		panic(fmt.Sprintf("invalid FEN: %s", err))
	}
	return nfen
}

// String returns the four-field normalized form.
func (n NormalizedFEN) String() string {
	return n.fen
}

// FullFEN returns a six-field FEN usable by chess libraries, with zeroed
// move counters.
func (n NormalizedFEN) FullFEN() string {
	return n.fen + " 0 1"
}

// IsZero reports whether the value was never initialized.
func (n NormalizedFEN) IsZero() bool {
	return n.fen == ""
}

// Turn returns the side to move.
func (n NormalizedFEN) Turn() chess.Color {
	fields := strings.Fields(n.fen)
	if len(fields) > 1 && fields[1] == "b" {
		return chess.Black
	}
	return chess.White
}

// PieceCount returns the number of pieces on the board. It is used to bucket
// analysis statistics by game phase.
func (n NormalizedFEN) PieceCount() int {
	placement, _, _ := strings.Cut(n.fen, " ")

	count := 0
	for _, r := range placement {
		if r == '/' || (r >= '1' && r <= '8') {
			continue
		}
		count++
	}
	return count
}

// AsciiArtLines renders the board as text lines for log output.
func (n NormalizedFEN) AsciiArtLines() []string {
	option, err := chess.FEN(n.FullFEN())
	if err != nil {
		return nil
	}

	game := chess.NewGame(option)
	art := strings.TrimSpace(game.Position().Board().Draw())
	return strings.Split(art, "\n")
}

// ValidateMove checks that a move in coordinate notation is legal in this
// position.
func (n NormalizedFEN) ValidateMove(uci string) error {
	if uci == "" {
		return errors.New("move is empty")
	}

	option, err := chess.FEN(n.FullFEN())
	if err != nil {
		return fmt.Errorf("invalid position: %w", err)
	}

	game := chess.NewGame(option)
	for _, move := range game.ValidMoves() {
		if move.String() == uci {
			return nil
		}
	}

	return fmt.Errorf("invalid move: %s", uci)
}

// MarshalJSON implements the json.Marshaler interface for NormalizedFEN.
func (n NormalizedFEN) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.fen)
}

// UnmarshalJSON implements the json.Unmarshaler interface for NormalizedFEN.
// An empty string decodes to the zero value, so payloads with an unset
// position round-trip.
func (n *NormalizedFEN) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid position string: %w", err)
	}

	if s == "" {
		*n = NormalizedFEN{}
		return nil
	}

	parsed, err := NewNormalizedFEN(s)
	if err != nil {
		return fmt.Errorf("invalid position string: %w", err)
	}

	*n = parsed
	return nil
}

// Scan implements the sql.Scanner interface for NormalizedFEN.
func (n *NormalizedFEN) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("cannot scan %T into NormalizedFEN", value)
	}

	parsed, err := NewNormalizedFEN(s)
	if err != nil {
		return fmt.Errorf("error scanning position: %w", err)
	}

	*n = parsed
	return nil
}
