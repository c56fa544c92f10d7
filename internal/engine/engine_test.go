package engine //nolint:testpackage

import (
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/board"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const italianFEN = "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"

type fakeClock struct {
	elapsed   time.Duration
	remaining time.Duration
}

func (c *fakeClock) Elapsed() time.Duration   { return c.elapsed }
func (c *fakeClock) Remaining() time.Duration { return c.remaining }

// generousClock never runs out within a test.
func generousClock() Clock {
	return &fakeClock{remaining: time.Hour}
}

func mustPosition(t *testing.T, fen string) *board.Position {
	t.Helper()

	pos, err := board.NewPosition(fen)
	require.NoError(t, err)
	return pos
}

// testConfig pins the jitter seed so move choice is reproducible.
func testConfig(maxDepth int) Config {
	cfg := DefaultConfig()
	cfg.MaxDepth = maxDepth
	cfg.Seed = 42
	return cfg
}

func legalMoveNames(pos *board.Position) map[string]bool {
	names := make(map[string]bool)
	for _, move := range pos.LegalMoves() {
		names[move.String()] = true
	}
	return names
}

func TestThink_ReturnsLegalMove(t *testing.T) {
	engine := NewEngine(testConfig(3))
	pos := mustPosition(t, italianFEN)

	result, err := engine.Think(pos, chess.White, generousClock())
	require.NoError(t, err)
	require.NotNil(t, result.Move)
	require.True(t, legalMoveNames(pos)[result.Move.String()])
	require.Equal(t, 3, result.Depth)
}

func TestThink_NoLegalMoves(t *testing.T) {
	engine := NewEngine(testConfig(3))
	pos := mustPosition(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	_, err := engine.Think(pos, chess.Black, generousClock())
	require.ErrorIs(t, err, ErrNoLegalMoves)
}

func TestThink_SingleLegalMove(t *testing.T) {
	engine := NewEngine(testConfig(64))
	pos := mustPosition(t, "k6R/2K5/8/8/8/8/8/8 b - - 0 1")

	result, err := engine.Think(pos, chess.Black, generousClock())
	require.NoError(t, err)
	require.Equal(t, "a8a7", result.Move.String())
	require.Equal(t, 0, result.Depth)
	require.Zero(t, engine.stats.evals, "forced moves must not consult the evaluator")
	require.Zero(t, engine.stats.evalHits)
}

func TestThink_FindsMateInOne(t *testing.T) {
	engine := NewEngine(testConfig(5))
	pos := mustPosition(t, "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")

	result, err := engine.Think(pos, chess.White, generousClock())
	require.NoError(t, err)
	require.Equal(t, "a1a8", result.Move.String())
	require.GreaterOrEqual(t, result.Score, float64(mateScore))
	require.Equal(t, 2, result.Depth, "a confirmed mate stops the deepening loop")
}

func TestThink_PrefersFasterMate(t *testing.T) {
	mateInOne := mustPosition(t, "6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")
	mateInTwo := mustPosition(t, "7k/8/8/8/8/8/R7/1R4K1 w - - 0 1")

	fast, err := NewEngine(testConfig(4)).Think(mateInOne, chess.White, generousClock())
	require.NoError(t, err)
	slow, err := NewEngine(testConfig(4)).Think(mateInTwo, chess.White, generousClock())
	require.NoError(t, err)

	require.GreaterOrEqual(t, slow.Score, float64(mateScore))
	require.Greater(t, fast.Score, slow.Score)
}

func TestThink_DepthOneAvoidsLosingCapture(t *testing.T) {
	engine := NewEngine(testConfig(1))
	pos := mustPosition(t, "4k3/3p4/8/8/8/8/3Q4/4K3 w - - 0 1")

	result, err := engine.Think(pos, chess.White, generousClock())
	require.NoError(t, err)
	require.NotEqual(t, "d2d7", result.Move.String(), "the d7 pawn is defended by the king")
	require.True(t, legalMoveNames(pos)[result.Move.String()])
}

func TestThink_TinyBudget(t *testing.T) {
	t.Run("expired clock still answers", func(t *testing.T) {
		engine := NewEngine(testConfig(64))
		pos := mustPosition(t, startFEN)
		clock := &fakeClock{elapsed: time.Hour, remaining: time.Millisecond}

		result, err := engine.Think(pos, chess.White, clock)
		require.NoError(t, err)
		require.True(t, legalMoveNames(pos)[result.Move.String()])
	})

	t.Run("no pass ever completes", func(t *testing.T) {
		cfg := testConfig(64)
		cfg.DeadlineCheckNodes = 1
		cfg.MinAbortPly = 0
		engine := NewEngine(cfg)
		pos := mustPosition(t, startFEN)
		clock := &fakeClock{elapsed: time.Hour, remaining: time.Millisecond}

		result, err := engine.Think(pos, chess.White, clock)
		require.NoError(t, err)
		require.NotNil(t, result.Move)
		require.True(t, legalMoveNames(pos)[result.Move.String()])
		require.Equal(t, 0, result.Depth)
	})
}

func TestThink_RootDrawFallsBackToLegalMove(t *testing.T) {
	engine := NewEngine(testConfig(4))
	pos := mustPosition(t, "8/8/8/4k3/8/4K3/R7/8 w - - 100 80")
	require.True(t, pos.IsDraw())

	result, err := engine.Think(pos, chess.White, generousClock())
	require.NoError(t, err)
	require.True(t, legalMoveNames(pos)[result.Move.String()])
	require.Equal(t, 0, result.Depth)
	require.Zero(t, result.Score)
}

func TestThink_RestoresPosition(t *testing.T) {
	t.Run("completed search", func(t *testing.T) {
		engine := NewEngine(testConfig(2))
		pos := mustPosition(t, italianFEN)
		before := pos.Fingerprint()

		_, err := engine.Think(pos, chess.White, generousClock())
		require.NoError(t, err)
		require.Equal(t, before, pos.Fingerprint())
		require.Equal(t, italianFEN, pos.FEN())
	})

	t.Run("aborted search", func(t *testing.T) {
		cfg := testConfig(64)
		cfg.DeadlineCheckNodes = 1
		engine := NewEngine(cfg)
		pos := mustPosition(t, italianFEN)
		before := pos.Fingerprint()

		_, err := engine.Think(pos, chess.White, &fakeClock{elapsed: time.Hour, remaining: time.Millisecond})
		require.NoError(t, err)
		require.Equal(t, before, pos.Fingerprint())
	})
}

func TestThink_FixedSeedIsDeterministic(t *testing.T) {
	first, err := NewEngine(testConfig(3)).Think(mustPosition(t, startFEN), chess.White, generousClock())
	require.NoError(t, err)
	second, err := NewEngine(testConfig(3)).Think(mustPosition(t, startFEN), chess.White, generousClock())
	require.NoError(t, err)

	require.Equal(t, first.Move.String(), second.Move.String())
	require.Equal(t, first.Score, second.Score)
	require.Equal(t, first.Nodes, second.Nodes)
}

func TestThink_StabilityStop(t *testing.T) {
	cfg := testConfig(10)
	cfg.StableIterations = 2
	cfg.MinStableDepth = 2
	engine := NewEngine(cfg)
	pos := mustPosition(t, "6k1/8/8/3q3R/8/8/8/K7 w - - 0 1")

	result, err := engine.Think(pos, chess.White, generousClock())
	require.NoError(t, err)
	require.Equal(t, "h5d5", result.Move.String(), "taking the queen dominates at every depth")
	require.Equal(t, 2, result.Depth)
}

func TestDeadlineClamp(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name      string
		remaining time.Duration
		want      time.Duration
	}{
		{
			name:      "plenty of time hits the ceiling",
			remaining: 2 * time.Hour,
			want:      10 * time.Second,
		},
		{
			name:      "normal budget loses the panic reserve",
			remaining: 5 * time.Second,
			want:      4 * time.Second,
		},
		{
			name:      "thin budget hits the floor",
			remaining: 1050 * time.Millisecond,
			want:      100 * time.Millisecond,
		},
		{
			name:      "exhausted budget still gets the floor",
			remaining: 10 * time.Millisecond,
			want:      100 * time.Millisecond,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := engine.deadline(&fakeClock{remaining: test.remaining})
			require.Equal(t, test.want, got)
		})
	}
}

func TestNewTurnClock(t *testing.T) {
	clock := NewTurnClock(3 * time.Second)

	require.Equal(t, 3*time.Second, clock.Remaining())
	require.GreaterOrEqual(t, clock.Elapsed(), time.Duration(0))
}
