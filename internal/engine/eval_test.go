package engine //nolint:testpackage

import (
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/require"
)

func TestStaticEval_StartingPositionIsBalanced(t *testing.T) {
	pos := mustPosition(t, startFEN)

	require.InDelta(t, 0, staticEval(pos, chess.White), 1e-9)
}

func TestStaticEval_PerspectiveNegates(t *testing.T) {
	pos := mustPosition(t, italianFEN)

	white := staticEval(pos, chess.White)
	black := staticEval(pos, chess.Black)
	require.Equal(t, white, -black)
}

func TestStaticEval_MaterialAdvantage(t *testing.T) {
	// Starting position without the black queen.
	pos := mustPosition(t, "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")

	score := staticEval(pos, chess.White)
	require.Greater(t, score, 5.0)
}

func TestStaticEval_HangingPieceAsymmetry(t *testing.T) {
	// A white knight hangs to the rook on e5 in both positions; only the
	// side to move differs.
	blackToMove := mustPosition(t, "4k3/8/8/4r3/8/4N3/8/4K3 b - - 0 1")
	whiteToMove := mustPosition(t, "4k3/8/8/4r3/8/4N3/8/4K3 w - - 0 1")

	withoutTempo := staticEval(blackToMove, chess.White)
	withTempo := staticEval(whiteToMove, chess.White)

	require.Less(t, withoutTempo, withTempo, "a hanging piece only counts while its owner has the move")
	require.Greater(t, withTempo-withoutTempo, 2.0, "the gap is roughly the knight's value")
}

func TestEvaluate_CacheIdempotent(t *testing.T) {
	engine := NewEngine(testConfig(1))
	pos := mustPosition(t, italianFEN)

	first := engine.evaluate(pos, chess.White)
	second := engine.evaluate(pos, chess.White)

	require.Equal(t, first, second)
	require.EqualValues(t, 1, engine.stats.evals)
	require.EqualValues(t, 1, engine.stats.evalHits)

	engine.evals.reset()
	third := engine.evaluate(pos, chess.White)
	require.Equal(t, first, third)
	require.EqualValues(t, 2, engine.stats.evals)
}

func TestPositionalMultiplier(t *testing.T) {
	t.Run("pawn advances toward promotion", func(t *testing.T) {
		home := positionalMultiplier(chess.WhitePawn, chess.E2, chess.E8)
		advanced := positionalMultiplier(chess.WhitePawn, chess.E7, chess.E8)

		require.InDelta(t, 1.0, home, 1e-9)
		require.InDelta(t, 1.25, advanced, 1e-9)
	})

	t.Run("black pawn advances downward", func(t *testing.T) {
		home := positionalMultiplier(chess.BlackPawn, chess.E7, chess.E1)
		advanced := positionalMultiplier(chess.BlackPawn, chess.E2, chess.E1)

		require.InDelta(t, 1.0, home, 1e-9)
		require.InDelta(t, 1.25, advanced, 1e-9)
	})

	t.Run("pieces near the enemy king scale up", func(t *testing.T) {
		near := positionalMultiplier(chess.WhiteKnight, chess.D7, chess.E8)
		far := positionalMultiplier(chess.WhiteKnight, chess.A1, chess.E8)

		require.Greater(t, near, far)
		require.InDelta(t, 1.12, near, 1e-9)
	})
}

func TestManhattan(t *testing.T) {
	require.Equal(t, 0, manhattan(chess.E4, chess.E4))
	require.Equal(t, 2, manhattan(chess.E4, chess.D5))
	require.Equal(t, 14, manhattan(chess.A1, chess.H8))
}
