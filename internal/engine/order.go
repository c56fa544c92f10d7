package engine

import (
	"sort"

	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/board"
)

const (
	captureWeight = 10000
	moverWeight   = 10

	// hintScore puts hinted moves ahead of any weighted move score.
	hintScore = 1e9
)

// pieceValue returns the material weight shared by move ordering and the
// evaluator. The king is worth nothing in both; mate handling lives in the
// search itself.
func pieceValue(t chess.PieceType) float64 {
	switch t {
	case chess.Pawn:
		return 1
	case chess.Knight, chess.Bishop:
		return 3
	case chess.Rook:
		return 5
	case chess.Queen:
		return 9
	default:
		return 0
	}
}

// capturedValue returns the value of the piece the move captures, if any.
func capturedValue(pos *board.Position, move *chess.Move) float64 {
	if move.HasTag(chess.EnPassant) {
		return pieceValue(chess.Pawn)
	}
	return pieceValue(pos.PieceAt(move.S2()).Type())
}

// orderMoves sorts moves so likely cutoffs come first: hint moves ahead of
// everything (earlier hints ahead of later ones), then captures by victim
// value, then mover value, with a sliver of jitter to break ties. Ordering
// only affects search speed, never its result.
func (e *Engine) orderMoves(pos *board.Position, moves []*chess.Move, hints ...string) []*chess.Move {
	scores := make(map[*chess.Move]float64, len(moves))
	for _, move := range moves {
		scores[move] = e.moveScore(pos, move)
		for i, hint := range hints {
			if hint != "" && move.String() == hint {
				scores[move] = hintScore - float64(i)
				break
			}
		}
	}

	ordered := make([]*chess.Move, len(moves))
	copy(ordered, moves)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i]] > scores[ordered[j]]
	})
	return ordered
}

func (e *Engine) moveScore(pos *board.Position, move *chess.Move) float64 {
	captured := capturedValue(pos, move)
	mover := pieceValue(pos.PieceAt(move.S1()).Type())
	return captureWeight*captured + moverWeight*mover + e.rng.Float64()
}
