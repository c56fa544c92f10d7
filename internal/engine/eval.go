package engine

import (
	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/board"
)

// Evaluation weights. Material dominates; the positional multipliers and the
// mobility bonus only nudge otherwise equal material.
const (
	pawnAdvanceWeight  = 0.05
	kingDistanceWeight = 0.01
	mobilityWeight     = 0.02

	// maxKingDistance is the largest Manhattan distance on the board.
	maxKingDistance = 14
)

// evaluate returns the static evaluation of the current position from the
// given perspective, memoized by fingerprint for the rest of the Think call.
func (e *Engine) evaluate(pos *board.Position, perspective chess.Color) float64 {
	fingerprint := pos.Fingerprint()
	if score, ok := e.evals.get(fingerprint); ok {
		e.stats.evalHits++
		return score
	}

	score := staticEval(pos, perspective)
	e.stats.evals++
	e.evals.put(fingerprint, score)
	return score
}

// staticEval scores the position as seen by perspective: positive favors
// perspective. Kings carry no weight anywhere in the sum. The board is walked
// in square order so the floating point result is reproducible.
func staticEval(pos *board.Position, perspective chess.Color) float64 {
	b := pos.Current().Board()
	attacks := board.ComputeAttacks(b)
	sideToMove := pos.Turn()

	kings := [2]chess.Square{
		pos.KingSquare(chess.White),
		pos.KingSquare(chess.Black),
	}

	var total float64
	for sq := chess.A1; sq <= chess.H8; sq++ {
		piece := b.Piece(sq)
		if piece == chess.NoPiece || piece.Type() == chess.King {
			continue
		}

		color := piece.Color()
		// A hanging piece is written off only when its owner does not
		// have the move to save it.
		if color != sideToMove && isHanging(attacks, sq, color) {
			continue
		}

		enemyKing := kings[board.ColorIndex(color.Other())]
		value := pieceValue(piece.Type()) * positionalMultiplier(piece, sq, enemyKing)
		value += mobilityWeight * float64(attacks.Count(sq))

		if color == perspective {
			total += value
		} else {
			total -= value
		}
	}

	return total
}

// isHanging reports whether the piece on sq is attacked by its opponent and
// defended by nobody.
func isHanging(attacks *board.AttackInfo, sq chess.Square, color chess.Color) bool {
	return attacks.Attacks(color.Other(), sq) && !attacks.Attacks(color, sq)
}

// positionalMultiplier scales a piece's material value by where it stands:
// pawns by progress toward promotion, everything else by Manhattan closeness
// to the enemy king.
func positionalMultiplier(piece chess.Piece, sq chess.Square, enemyKing chess.Square) float64 {
	if piece.Type() == chess.Pawn {
		advance := int(sq.Rank()) - 1
		if piece.Color() == chess.Black {
			advance = 6 - int(sq.Rank())
		}
		return 1 + pawnAdvanceWeight*float64(advance)
	}

	if enemyKing == chess.NoSquare {
		return 1
	}
	return 1 + kingDistanceWeight*float64(maxKingDistance-manhattan(sq, enemyKing))
}

func manhattan(a, b chess.Square) int {
	files := int(a.File()) - int(b.File())
	if files < 0 {
		files = -files
	}
	ranks := int(a.Rank()) - int(b.Rank())
	if ranks < 0 {
		ranks = -ranks
	}
	return files + ranks
}
