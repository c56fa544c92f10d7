package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	"github.com/samber/lo"
	"github.com/skewerchess/skewer/internal/board"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/models"
)

const (
	// DefaultTimePerSide is the starting clock budget for each side.
	DefaultTimePerSide = 3 * time.Minute

	// minBookDepth is the shallowest stored analysis the session plays from
	// the book without searching.
	minBookDepth = 6
)

// MethodTimeForfeit is reported when a side runs out of clock.
const MethodTimeForfeit = "Time forfeit"

var (
	ErrGameFinished  = errors.New("game is finished")
	ErrNotEngineTurn = errors.New("it is not the engine's turn")
	ErrNotPlayerTurn = errors.New("it is not the player's turn")
)

// Book looks up stored analyses, typically backed by the analysis table.
type Book interface {
	Lookup(ctx context.Context, position models.NormalizedFEN) (models.Analysis, bool)
}

// Session is one game between the engine and an opponent. It owns the game
// state, both clocks and the engine, and reports the outcome when the game
// ends. Sessions are not safe for concurrent use.
type Session struct {
	id          string
	game        *chess.Game
	eng         *engine.Engine
	engineColor chess.Color
	book        Book

	remaining  [2]time.Duration
	lastMoveAt time.Time
	startedAt  time.Time

	// forfeited holds the side whose flag fell, if any.
	forfeited *chess.Color
}

// NewSession starts a new game from the initial position. book may be nil,
// in which case the engine always searches.
func NewSession(eng *engine.Engine, engineColor chess.Color, book Book) *Session {
	now := time.Now()

	session := &Session{
		id:          uuid.New().String(),
		game:        chess.NewGame(),
		eng:         eng,
		engineColor: engineColor,
		book:        book,
		lastMoveAt:  now,
		startedAt:   now,
	}
	session.remaining[board.ColorIndex(chess.White)] = DefaultTimePerSide
	session.remaining[board.ColorIndex(chess.Black)] = DefaultTimePerSide

	return session
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// FEN returns the current position.
func (s *Session) FEN() string {
	return s.game.Position().String()
}

// Turn returns the side to move.
func (s *Session) Turn() chess.Color {
	return s.game.Position().Turn()
}

// EngineColor returns the side the engine plays.
func (s *Session) EngineColor() chess.Color {
	return s.engineColor
}

// Remaining returns the clock budget left for a side.
func (s *Session) Remaining(color chess.Color) time.Duration {
	return s.remaining[board.ColorIndex(color)]
}

// SetClock resets both clocks to the given budget. Calling it after moves
// have been played restarts the game timing.
func (s *Session) SetClock(perSide time.Duration) {
	s.remaining[board.ColorIndex(chess.White)] = perSide
	s.remaining[board.ColorIndex(chess.Black)] = perSide
	s.lastMoveAt = time.Now()
}

// Moves returns the moves played so far in coordinate notation.
func (s *Session) Moves() []string {
	return lo.Map(s.game.Moves(), func(move *chess.Move, _ int) string {
		return move.String()
	})
}

// Finished reports whether the game is over.
func (s *Session) Finished() bool {
	return s.forfeited != nil || s.game.Outcome() != chess.NoOutcome
}

// Status returns the outcome and method of the game. While the game is in
// progress the outcome is models.OutcomeUnknown.
func (s *Session) Status() (string, string) {
	if s.forfeited != nil {
		if *s.forfeited == chess.White {
			return models.OutcomeBlackWon, MethodTimeForfeit
		}
		return models.OutcomeWhiteWon, MethodTimeForfeit
	}

	return string(s.game.Outcome()), methodString(s.game.Method())
}

// ApplyMove plays the opponent's move, given in coordinate or standard
// algebraic notation.
func (s *Session) ApplyMove(input string) error {
	if s.Finished() {
		return ErrGameFinished
	}

	mover := s.Turn()
	if mover == s.engineColor {
		return ErrNotPlayerTurn
	}

	if s.chargeClock(mover) {
		return ErrGameFinished
	}

	move := s.findMove(input)
	if move == nil {
		decoded, err := chess.AlgebraicNotation{}.Decode(s.game.Position(), input)
		if err != nil {
			return fmt.Errorf("illegal move: %s", input)
		}
		move = decoded
	}

	if err := s.game.Move(move); err != nil {
		return fmt.Errorf("error applying move: %w", err)
	}

	s.claimEligibleDraws()
	return nil
}

// EngineMove computes and plays the engine's move. The scripted opening and
// the book are consulted before searching.
func (s *Session) EngineMove(ctx context.Context) (engine.Result, error) {
	if s.Finished() {
		return engine.Result{}, ErrGameFinished
	}

	if s.Turn() != s.engineColor {
		return engine.Result{}, ErrNotEngineTurn
	}

	result, err := s.pickEngineMove(ctx)
	if err != nil {
		return engine.Result{}, err
	}

	if s.chargeClock(s.engineColor) {
		return engine.Result{}, ErrGameFinished
	}

	if err := s.game.Move(result.Move); err != nil {
		return engine.Result{}, fmt.Errorf("error applying engine move: %w", err)
	}

	s.claimEligibleDraws()
	return result, nil
}

// Resign ends the game in the opponent's favor.
func (s *Session) Resign(color chess.Color) {
	if s.Finished() {
		return
	}
	s.game.Resign(color)
}

// Record renders the finished (or abandoned) game for storage.
func (s *Session) Record() models.GameRecord {
	outcome, method := s.Status()

	engineColor := models.EngineColorWhite
	if s.engineColor == chess.Black {
		engineColor = models.EngineColorBlack
	}

	return models.GameRecord{
		ID:          s.id,
		EngineColor: engineColor,
		PGN:         strings.TrimSpace(s.game.String()),
		Outcome:     outcome,
		Method:      method,
		StartedAt:   s.startedAt,
		FinishedAt:  time.Now(),
	}
}

func (s *Session) pickEngineMove(ctx context.Context) (engine.Result, error) {
	if move := s.openingMove(); move != nil {
		return engine.Result{Move: move}, nil
	}

	if result, ok := s.bookMove(ctx); ok {
		return result, nil
	}

	pos := board.NewPositionFromGame(s.game)
	clock := engine.NewTurnClock(s.Remaining(s.engineColor))

	result, err := s.eng.Think(pos, s.engineColor, clock)
	if err != nil {
		return engine.Result{}, fmt.Errorf("error searching: %w", err)
	}

	return result, nil
}

// openingMove returns the scripted opening move, if one applies: the engine
// opens with e4, and answers e4 with e5.
func (s *Session) openingMove() *chess.Move {
	moves := s.game.Moves()

	if s.engineColor == chess.White && len(moves) == 0 {
		return s.findMove("e2e4")
	}

	if s.engineColor == chess.Black && len(moves) == 1 && moves[0].String() == "e2e4" {
		return s.findMove("e7e5")
	}

	return nil
}

// bookMove plays a stored analysis if one is deep enough and legal here.
func (s *Session) bookMove(ctx context.Context) (engine.Result, bool) {
	if s.book == nil {
		return engine.Result{}, false
	}

	nfen, err := models.NewNormalizedFEN(s.FEN())
	if err != nil {
		return engine.Result{}, false
	}

	analysis, ok := s.book.Lookup(ctx, nfen)
	if !ok || analysis.Depth < minBookDepth {
		return engine.Result{}, false
	}

	move := s.findMove(analysis.BestMove)
	if move == nil {
		return engine.Result{}, false
	}

	return engine.Result{
		Move:  move,
		Score: analysis.Score,
		Depth: analysis.Depth,
	}, true
}

// chargeClock subtracts the time spent on the current move from the mover's
// clock. It reports whether the mover's flag fell.
func (s *Session) chargeClock(mover chess.Color) bool {
	now := time.Now()
	spent := now.Sub(s.lastMoveAt)
	s.lastMoveAt = now

	idx := board.ColorIndex(mover)
	s.remaining[idx] -= spent

	if s.remaining[idx] <= 0 {
		s.remaining[idx] = 0
		forfeited := mover
		s.forfeited = &forfeited
		return true
	}

	return false
}

// claimEligibleDraws claims threefold repetition and fifty move rule draws
// as soon as they apply, matching the rules the engine assumes while
// searching.
func (s *Session) claimEligibleDraws() {
	for _, method := range s.game.EligibleDraws() {
		if method == chess.ThreefoldRepetition || method == chess.FiftyMoveRule {
			s.game.Draw(method) //nolint:errcheck
			return
		}
	}
}

// findMove resolves a move in coordinate notation against the legal moves.
func (s *Session) findMove(uci string) *chess.Move {
	for _, move := range s.game.ValidMoves() {
		if move.String() == uci {
			return move
		}
	}
	return nil
}

func methodString(method chess.Method) string {
	switch method {
	case chess.Checkmate:
		return "Checkmate"
	case chess.Stalemate:
		return "Stalemate"
	case chess.Resignation:
		return "Resignation"
	case chess.DrawOffer:
		return "Draw agreed"
	case chess.ThreefoldRepetition:
		return "Threefold repetition"
	case chess.FivefoldRepetition:
		return "Fivefold repetition"
	case chess.FiftyMoveRule:
		return "Fifty move rule"
	case chess.SeventyFiveMoveRule:
		return "Seventy-five move rule"
	case chess.InsufficientMaterial:
		return "Insufficient material"
	default:
		return ""
	}
}
