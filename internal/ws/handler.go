package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/notnil/chess"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/game"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
	"github.com/skewerchess/skewer/internal/services"
)

const (
	lookupTimeout = 2 * time.Second
	moveTimeout   = 30 * time.Second
	saveTimeout   = 5 * time.Second
)

type Handler struct {
	services *services.Services
	ws       *websocket.Conn
	session  *game.Session
}

// NewHandler creates a new Handler.
func NewHandler(ws *websocket.Conn, services *services.Services) *Handler {
	return &Handler{services: services, ws: ws}
}

func (h *Handler) readMessage() (*Incoming, error) {
	var req Incoming

	msgType, msg, err := h.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("ws read error: %w", err)
	}

	slog.Debug("read ws message", "msgType", msgType, "msg", msg)

	if msgType != websocket.TextMessage {
		return nil, fmt.Errorf("unexpected message type: %d", msgType)
	}

	if err = json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return &req, nil
}

func (h *Handler) writeMessage(outgoing *Outgoing) error {
	msg, err := json.Marshal(outgoing)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	slog.Debug("write ws message", "msg", string(msg))

	if err = h.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	return nil
}

func (h *Handler) handleMessage(req *Incoming) (*Outgoing, error) {
	if req.Event == "" {
		return nil, errors.New("event field is either empty or missing")
	}

	switch req.Event {
	case "new_game":
		return h.handleNewGame(req)
	case "move":
		return h.handleMove(req)
	case "resign":
		return h.handleResign(req)
	case "lookup_request":
		return h.handleLookupRequest(req)
	default:
		return nil, fmt.Errorf("unknown event: %s", req.Event)
	}
}

// Handle handles the websocket connection.
func (h *Handler) Handle() error {
	for {
		req, err := h.readMessage()
		if err != nil {
			return fmt.Errorf("ws read error: %w", err)
		}

		respData, err := h.handleMessage(req)
		if err != nil {
			return fmt.Errorf("ws handle error: %w", err)
		}

		if err = h.writeMessage(respData); err != nil {
			return fmt.Errorf("ws write error: %w", err)
		}
	}
}

func (h *Handler) handleNewGame(req *Incoming) (*Outgoing, error) {
	var reqData NewGameRequest
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &reqData); err != nil {
			return nil, fmt.Errorf("ws new game unmarshal error: %w", err)
		}
	}

	engineColor := chess.Black
	if reqData.EngineColor == models.EngineColorWhite {
		engineColor = chess.White
	}

	book := &analysisBook{
		repo:  repository.NewAnalysisRepositoryFromServices(h.services),
		cache: models.NewCache(),
	}

	h.session = game.NewSession(engine.NewEngine(engine.DefaultConfig()), engineColor, book)

	// When the engine has the white pieces it moves first.
	var result engine.Result
	if h.session.Turn() == engineColor {
		ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
		defer cancel()

		var err error
		result, err = h.session.EngineMove(ctx)
		if err != nil {
			return nil, fmt.Errorf("ws new game engine move error: %w", err)
		}
	}

	return h.gameStateResponse(req.ID, result, nil), nil
}

func (h *Handler) handleMove(req *Incoming) (*Outgoing, error) {
	if h.session == nil {
		return nil, errors.New("no game in progress")
	}

	var reqData MoveRequest
	if err := json.Unmarshal(req.Data, &reqData); err != nil {
		return nil, fmt.Errorf("ws move unmarshal error: %w", err)
	}

	if err := h.session.ApplyMove(reqData.Move); err != nil {
		// An illegal move is a user mistake, not a protocol error. Report
		// it without closing the connection. The move may also have ended
		// the game by time forfeit.
		h.saveIfFinished()
		return h.gameStateResponse(req.ID, engine.Result{}, err), nil
	}

	var result engine.Result
	if !h.session.Finished() {
		ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
		defer cancel()

		var err error
		result, err = h.session.EngineMove(ctx)
		if err != nil && !errors.Is(err, game.ErrGameFinished) {
			return nil, fmt.Errorf("ws engine move error: %w", err)
		}
	}

	h.saveIfFinished()
	return h.gameStateResponse(req.ID, result, nil), nil
}

func (h *Handler) handleResign(req *Incoming) (*Outgoing, error) {
	if h.session == nil {
		return nil, errors.New("no game in progress")
	}

	humanColor := chess.White
	if h.session.EngineColor() == chess.White {
		humanColor = chess.Black
	}

	h.session.Resign(humanColor)
	h.saveIfFinished()

	return h.gameStateResponse(req.ID, engine.Result{}, nil), nil
}

func (h *Handler) handleLookupRequest(req *Incoming) (*Outgoing, error) {
	var reqData LookupRequest
	if err := json.Unmarshal(req.Data, &reqData); err != nil {
		return nil, fmt.Errorf("ws lookup request unmarshal error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	repo := repository.NewAnalysisRepositoryFromServices(h.services)

	analyses, err := repo.LookupPositions(ctx, reqData.Positions)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup positions: %w", err)
	}

	outgoing := &Outgoing{
		ID: req.ID,
		Data: LookupResponse{
			Analyses: analyses,
		},
	}

	return outgoing, nil
}

// gameStateResponse renders the session state. moveErr is reported in the
// payload so the client can show it.
func (h *Handler) gameStateResponse(id int, result engine.Result, moveErr error) *Outgoing {
	outcome, method := h.session.Status()
	if !h.session.Finished() {
		outcome = ""
		method = ""
	}

	state := GameState{
		GameID:       h.session.ID(),
		FEN:          h.session.FEN(),
		Turn:         h.session.Turn().Name(),
		Moves:        h.session.Moves(),
		Score:        result.Score,
		Depth:        result.Depth,
		WhiteClockMs: h.session.Remaining(chess.White).Milliseconds(),
		BlackClockMs: h.session.Remaining(chess.Black).Milliseconds(),
		Finished:     h.session.Finished(),
		Outcome:      outcome,
		Method:       method,
	}

	if result.Move != nil {
		state.EngineMove = result.Move.String()
	}

	if moveErr != nil {
		state.Error = moveErr.Error()
	}

	return &Outgoing{ID: id, Data: state}
}

// saveIfFinished persists the game record once the game is over.
func (h *Handler) saveIfFinished() {
	if !h.session.Finished() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	repo := repository.NewGameRepositoryFromServices(h.services)
	if err := repo.SaveGame(ctx, h.session.Record()); err != nil {
		slog.Error("failed to save game record", "error", err)
	}
}

// analysisBook serves book moves from the analysis table, memoizing hits for
// the lifetime of the session.
type analysisBook struct {
	repo  *repository.AnalysisRepository
	cache *models.Cache
}

func (b *analysisBook) Lookup(ctx context.Context, position models.NormalizedFEN) (models.Analysis, bool) {
	if analysis, ok := b.cache.Lookup(position); ok {
		return analysis, true
	}

	analyses, err := b.repo.LookupPositions(ctx, []models.NormalizedFEN{position})
	if err != nil || len(analyses) == 0 {
		return models.Analysis{}, false
	}

	b.cache.BulkUpsert(analyses)
	return analyses[0], true
}
