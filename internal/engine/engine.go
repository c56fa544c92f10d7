package engine

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/board"
)

// ErrNoLegalMoves is returned when the engine is asked to move in a position
// that has none.
var ErrNoLegalMoves = errors.New("no legal moves")

// errDeadline aborts a search pass when the clock runs out. It never leaves
// this package: the deepening loop recovers it and falls back to the last
// completed pass.
var errDeadline = errors.New("search deadline exceeded")

// Config holds the engine tuning knobs.
type Config struct {
	// Per-turn time budget shaping: the thinking deadline is the remaining
	// game budget minus PanicReserve, clamped to [floor, ceiling].
	PanicReserve    time.Duration
	DeadlineFloor   time.Duration
	DeadlineCeiling time.Duration

	MaxDepth           int
	MinAbortPly        int
	DeadlineCheckNodes int
	MaxExtensions      int

	// Stop early when the chosen move has survived StableIterations
	// consecutive completed iterations past MinStableDepth. Zero disables
	// the stop.
	StableIterations int
	MinStableDepth   int

	// EvalCacheSize must be a power of two.
	EvalCacheSize int

	// Seed for the move-ordering jitter. Zero seeds from the wall clock;
	// any other value makes move choice reproducible.
	Seed int64
}

// DefaultConfig returns the tuning used by the server and CLI binaries.
func DefaultConfig() Config {
	return Config{
		PanicReserve:       time.Second,
		DeadlineFloor:      100 * time.Millisecond,
		DeadlineCeiling:    10 * time.Second,
		MaxDepth:           64,
		MinAbortPly:        2,
		DeadlineCheckNodes: 1024,
		MaxExtensions:      3,
		StableIterations:   0,
		MinStableDepth:     4,
		EvalCacheSize:      defaultEvalCacheSize,
	}
}

// Result is the outcome of one Think call.
type Result struct {
	Move  *chess.Move
	Score float64
	Depth int
	Nodes int64
}

// Engine is a single-threaded alpha-beta chess engine. An instance serves one
// Think call at a time; callers that need concurrency must serialize access.
// The ordering hint table is the only state carried from one turn to the
// next.
type Engine struct {
	cfg   Config
	tt    *transpositionTable
	evals *evalCache
	hints map[uint64]string
	rng   *rand.Rand
	stats searchStats

	// Base depth of the iteration in flight; bounds extension growth.
	iterDepth int
}

func NewEngine(cfg Config) *Engine {
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	if cfg.DeadlineCheckNodes < 1 {
		cfg.DeadlineCheckNodes = 1
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:   cfg,
		tt:    newTranspositionTable(),
		evals: newEvalCache(cfg.EvalCacheSize),
		hints: make(map[uint64]string),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Think searches the position within the clock's budget and returns the best
// move found, its score from rootColor's perspective, and the depth of the
// deepest completed pass. A position with a single legal move is answered
// immediately without consulting the evaluator. If the budget is too small
// for even one pass, the first move of the ordered legal list is returned.
func (e *Engine) Think(pos *board.Position, rootColor chess.Color, clock Clock) (Result, error) {
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		return Result{}, ErrNoLegalMoves
	}

	e.evals.reset()
	e.stats = searchStats{}

	if len(legal) == 1 {
		return Result{Move: legal[0]}, nil
	}

	deadline := e.deadline(clock)

	var (
		best   Result
		found  bool
		stable int
	)

	for depth := 1; depth <= e.cfg.MaxDepth; depth++ {
		e.tt.reset()
		e.iterDepth = depth

		move, score, err := e.search(pos, clock, deadline, rootColor, depth, 0, math.Inf(-1), math.Inf(1), nil)
		if err != nil || move == nil {
			// Aborted pass, or the root is already a rule draw.
			break
		}

		if found && move.String() == best.Move.String() {
			stable++
		} else {
			stable = 1
		}
		best = Result{Move: move, Score: score, Depth: depth, Nodes: e.stats.nodes}
		found = true

		if math.Abs(score) >= mateScore && stable >= 2 {
			break
		}
		if e.cfg.StableIterations > 0 && depth >= e.cfg.MinStableDepth && stable >= e.cfg.StableIterations {
			break
		}
		if clock.Elapsed() >= deadline {
			break
		}
	}

	if !found {
		ordered := e.orderMoves(pos, legal, e.hints[pos.Fingerprint()])
		best = Result{Move: ordered[0], Nodes: e.stats.nodes}
	}

	slog.Debug("search finished",
		"depth", best.Depth,
		"score", best.Score,
		"nodes", e.stats.nodes,
		"cutoffs", e.stats.cutoffs,
		"tt_hits", e.stats.ttHits,
		"evals", e.stats.evals,
		"eval_hits", e.stats.evalHits,
	)

	return best, nil
}

// ChooseMove is the outward face of the engine: it always returns a legal
// move for the side to move within the clock's budget, or ErrNoLegalMoves on
// a finished position.
func (e *Engine) ChooseMove(pos *board.Position, clock Clock) (*chess.Move, error) {
	result, err := e.Think(pos, pos.Turn(), clock)
	if err != nil {
		return nil, err
	}
	return result.Move, nil
}

// deadline converts the remaining game budget into this turn's thinking time.
func (e *Engine) deadline(clock Clock) time.Duration {
	budget := clock.Remaining() - e.cfg.PanicReserve
	if budget < e.cfg.DeadlineFloor {
		budget = e.cfg.DeadlineFloor
	}
	if budget > e.cfg.DeadlineCeiling {
		budget = e.cfg.DeadlineCeiling
	}
	return budget
}
