package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/notnil/chess"
)

// frame is one entry of the make/unmake stack.
type frame struct {
	pos           *chess.Position
	fingerprint   uint64
	halfMoveClock int
}

// Position is the engine's view of a chess position. It wraps the chess
// library's immutable positions in a make/unmake stack and tracks the state
// needed for rule-draw detection: halfmove clocks and repetition counts,
// seeded from the game history the position was created from.
type Position struct {
	frames      []frame
	repetitions map[uint64]int
}

// NewPosition creates a position from a FEN string.
func NewPosition(fen string) (*Position, error) {
	option, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}

	game := chess.NewGame(option)
	return NewPositionFromGame(game), nil
}

// NewPositionFromGame creates a position from a game in progress. The game's
// earlier positions seed the repetition table so that draws by repetition are
// detected across the game/search boundary.
func NewPositionFromGame(game *chess.Game) *Position {
	p := &Position{
		repetitions: make(map[uint64]int),
	}

	history := game.Positions()
	for _, pos := range history[:len(history)-1] {
		p.repetitions[Fingerprint(pos)]++
	}

	current := game.Position()
	fp := Fingerprint(current)
	p.repetitions[fp]++
	p.frames = append(p.frames, frame{
		pos:           current,
		fingerprint:   fp,
		halfMoveClock: halfMoveClock(current),
	})

	return p
}

// Fingerprint returns the 64-bit key used by the transposition, evaluation
// and repetition tables. It hashes the placement, side to move and
// castling/en-passant fields of the position and drops the move counters,
// so transpositions reached by different move orders share a key. Collisions
// are an accepted risk of the scheme.
func Fingerprint(pos *chess.Position) uint64 {
	return xxhash.Sum64String(NormalizeFEN(pos.String()))
}

// NormalizeFEN strips the halfmove clock and fullmove number from a FEN
// string, leaving the four fields that identify a position.
func NormalizeFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return fen
	}
	return strings.Join(fields[:4], " ")
}

// halfMoveClock reads the halfmove clock field from the position's FEN.
func halfMoveClock(pos *chess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) < 5 {
		return 0
	}

	clock, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return clock
}

func (p *Position) top() *frame {
	return &p.frames[len(p.frames)-1]
}

// Current returns the current underlying position.
func (p *Position) Current() *chess.Position {
	return p.top().pos
}

// Turn returns the color to move.
func (p *Position) Turn() chess.Color {
	return p.top().pos.Turn()
}

// Fingerprint returns the 64-bit fingerprint of the current position.
func (p *Position) Fingerprint() uint64 {
	return p.top().fingerprint
}

// FEN returns the FEN string of the current position.
func (p *Position) FEN() string {
	return p.top().pos.String()
}

// LegalMoves returns all legal moves in the current position.
func (p *Position) LegalMoves() []*chess.Move {
	return p.top().pos.ValidMoves()
}

// PieceAt returns the piece on the given square, or chess.NoPiece.
func (p *Position) PieceAt(sq chess.Square) chess.Piece {
	return p.top().pos.Board().Piece(sq)
}

// IsCapture reports whether the move captures a piece, including en passant.
func (p *Position) IsCapture(move *chess.Move) bool {
	return move.HasTag(chess.Capture) || move.HasTag(chess.EnPassant)
}

// Make plays a move and returns the undo function that restores the previous
// position. Calls must be strictly nested: each undo restores exactly the
// state its Make created, and undo must run on every exit path.
func (p *Position) Make(move *chess.Move) func() {
	current := p.top()
	board := current.pos.Board()

	clock := current.halfMoveClock + 1
	if board.Piece(move.S1()).Type() == chess.Pawn || p.IsCapture(move) {
		clock = 0
	}

	next := current.pos.Update(move)
	fp := Fingerprint(next)

	p.frames = append(p.frames, frame{
		pos:           next,
		fingerprint:   fp,
		halfMoveClock: clock,
	})
	p.repetitions[fp]++

	return func() {
		p.repetitions[fp]--
		if p.repetitions[fp] == 0 {
			delete(p.repetitions, fp)
		}
		p.frames = p.frames[:len(p.frames)-1]
	}
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	pos := p.top().pos
	kingSq := p.KingSquare(pos.Turn())
	if kingSq == chess.NoSquare {
		return false
	}
	return IsAttacked(pos.Board(), kingSq, pos.Turn().Other())
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.top().pos.Status() == chess.Checkmate
}

// IsDraw reports whether the current position is drawn by rule: stalemate,
// threefold repetition, the fifty-move rule or insufficient material.
func (p *Position) IsDraw() bool {
	current := p.top()

	if current.pos.Status() == chess.Stalemate {
		return true
	}
	if current.halfMoveClock >= 100 {
		return true
	}
	if p.repetitions[current.fingerprint] >= 3 {
		return true
	}
	return insufficientMaterial(current.pos.Board())
}

// KingSquare returns the square of the given color's king.
func (p *Position) KingSquare(color chess.Color) chess.Square {
	for sq, piece := range p.top().pos.Board().SquareMap() {
		if piece.Type() == chess.King && piece.Color() == color {
			return sq
		}
	}
	return chess.NoSquare
}

// insufficientMaterial reports whether neither side can force mate: bare
// kings, a lone minor piece, or same-colored single bishops.
func insufficientMaterial(board *chess.Board) bool {
	var knights, bishops int
	var bishopSquares []chess.Square

	for sq, piece := range board.SquareMap() {
		switch piece.Type() {
		case chess.Pawn, chess.Rook, chess.Queen:
			return false
		case chess.Knight:
			knights++
		case chess.Bishop:
			bishops++
			bishopSquares = append(bishopSquares, sq)
		}
	}

	minors := knights + bishops
	if minors <= 1 {
		return true
	}

	if knights == 0 && bishops == 2 && len(bishopSquares) == 2 {
		return squareColor(bishopSquares[0]) == squareColor(bishopSquares[1])
	}

	return false
}

// squareColor returns 0 for dark squares and 1 for light squares.
func squareColor(sq chess.Square) int {
	return (int(sq.File()) + int(sq.Rank())) % 2
}
