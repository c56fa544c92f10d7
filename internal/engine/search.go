package engine

import (
	"math"
	"time"

	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/board"
)

// mateScore is the magnitude of a checkmate found one ply from the horizon.
// Search scales it by the distance to the horizon, so nearer mates always
// outrank farther ones, and any score of at least mateScore means a forced
// mate was found.
const mateScore = 1e6

// reductionScale divides the remaining depth to size the reduction applied
// to quiet moves.
const reductionScale = 4

// searchStats aggregates per-Think counters for the debug log.
type searchStats struct {
	nodes    int64
	cutoffs  int64
	ttHits   int64
	evals    int64
	evalHits int64
}

// search runs one fail-soft alpha-beta pass to depthLimit. Scores are always
// from rootColor's perspective: lowerBound carries the score rootColor is
// already guaranteed elsewhere in the tree, upperBound the opponent's
// counterpart. The returned move is nil only on terminal nodes. When the
// clock runs out past MinAbortPly the pass unwinds with errDeadline, undoing
// every position mutation on the way up.
func (e *Engine) search(
	pos *board.Position,
	clock Clock,
	deadline time.Duration,
	rootColor chess.Color,
	depthLimit int,
	ply int,
	lowerBound float64,
	upperBound float64,
	lastMove *chess.Move,
) (*chess.Move, float64, error) {
	e.stats.nodes++
	if ply >= e.cfg.MinAbortPly &&
		e.stats.nodes%int64(e.cfg.DeadlineCheckNodes) == 0 &&
		clock.Elapsed() >= deadline {
		return nil, 0, errDeadline
	}

	if pos.IsCheckmate() {
		score := mateScore * float64(depthLimit-ply+1)
		if pos.Turn() == rootColor {
			score = -score
		}
		return nil, score, nil
	}
	if pos.IsDraw() {
		return nil, 0, nil
	}
	if ply >= depthLimit {
		return nil, e.evaluate(pos, rootColor), nil
	}

	remaining := depthLimit - ply
	fingerprint := pos.Fingerprint()
	legal := pos.LegalMoves()

	var ttMove string
	if entry, ok := e.tt.probe(remaining, fingerprint); ok {
		e.stats.ttHits++
		ttMove = entry.move
		switch entry.bound {
		case boundExact:
			// A resolution miss means the fingerprint collided with
			// a different position; fall through and search.
			if move := findMove(legal, entry.move); move != nil {
				return move, entry.score, nil
			}
		case boundLower:
			if entry.score > lowerBound {
				lowerBound = entry.score
			}
		case boundUpper:
			if entry.score < upperBound {
				upperBound = entry.score
			}
		}
		if lowerBound >= upperBound {
			return findMove(legal, entry.move), entry.score, nil
		}
	}

	maximizing := pos.Turn() == rootColor
	ordered := e.orderMoves(pos, legal, ttMove, e.hints[fingerprint])

	var bestMove *chess.Move
	bestScore := math.Inf(1)
	if maximizing {
		bestScore = math.Inf(-1)
	}

	for _, move := range ordered {
		undo := pos.Make(move)
		childLimit := e.childDepthLimit(pos, move, lastMove, depthLimit, remaining)
		_, score, err := e.search(pos, clock, deadline, rootColor, childLimit, ply+1, lowerBound, upperBound, move)
		undo()
		if err != nil {
			return nil, 0, err
		}

		if maximizing {
			if score > bestScore {
				bestScore = score
				bestMove = move
			}
			if bestScore >= upperBound {
				e.stats.cutoffs++
				e.finishNode(remaining, fingerprint, bestMove, bestScore, boundLower)
				return bestMove, bestScore, nil
			}
			if bestScore > lowerBound {
				lowerBound = bestScore
			}
		} else {
			if score < bestScore {
				bestScore = score
				bestMove = move
			}
			if bestScore <= lowerBound {
				e.stats.cutoffs++
				e.finishNode(remaining, fingerprint, bestMove, bestScore, boundUpper)
				return bestMove, bestScore, nil
			}
			if bestScore < upperBound {
				upperBound = bestScore
			}
		}
	}

	e.finishNode(remaining, fingerprint, bestMove, bestScore, boundExact)
	return bestMove, bestScore, nil
}

// finishNode stores a completed node's result and remembers its best move as
// an ordering hint for future visits of the same position.
func (e *Engine) finishNode(remaining int, fingerprint uint64, move *chess.Move, score float64, b bound) {
	uci := move.String()
	e.tt.store(remaining, fingerprint, ttEntry{score: score, move: uci, bound: b})
	e.hints[fingerprint] = uci
}

// childDepthLimit adjusts the depth limit for the move just made: checks and
// recaptures on the previous capture's square search one ply deeper (capped
// per iteration), quiet moves search shallower the more depth remains.
// Called after the move is made, so pos is the child position.
func (e *Engine) childDepthLimit(pos *board.Position, move, lastMove *chess.Move, depthLimit, remaining int) int {
	if pos.InCheck() || isRecapture(pos, move, lastMove) {
		if depthLimit < e.iterDepth+e.cfg.MaxExtensions {
			return depthLimit + 1
		}
		return depthLimit
	}

	if !pos.IsCapture(move) && move.Promo() == chess.NoPieceType {
		return depthLimit - remaining/reductionScale
	}
	return depthLimit
}

// isRecapture reports whether move captures on the same square as the
// immediately preceding capture.
func isRecapture(pos *board.Position, move, lastMove *chess.Move) bool {
	return lastMove != nil &&
		pos.IsCapture(lastMove) &&
		pos.IsCapture(move) &&
		move.S2() == lastMove.S2()
}

// findMove resolves a move name against the legal move list, nil when absent.
func findMove(legal []*chess.Move, uci string) *chess.Move {
	if uci == "" {
		return nil
	}
	for _, move := range legal {
		if move.String() == uci {
			return move
		}
	}
	return nil
}
