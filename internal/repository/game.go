package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/services"
)

const defaultGameListLimit = 50

var ErrGameNotFound = errors.New("game not found")

// GameRepository handles database operations for finished games.
type GameRepository struct {
	services *services.Services
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(c *fiber.Ctx) *GameRepository {
	services := c.Locals("services").(*services.Services) //nolint: errcheck

	return &GameRepository{
		services: services,
	}
}

func NewGameRepositoryFromServices(services *services.Services) *GameRepository {
	return &GameRepository{
		services: services,
	}
}

// SaveGame stores a finished game.
func (repo *GameRepository) SaveGame(ctx context.Context, record models.GameRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid game record: %w", err)
	}

	pgConn := repo.services.Postgres

	query := `
		INSERT INTO game (id, engine_color, pgn, outcome, method, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := pgConn.ExecContext(ctx, query,
		record.ID,
		record.EngineColor,
		record.PGN,
		record.Outcome,
		record.Method,
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving game: %w", err)
	}

	return nil
}

// GetGame retrieves one game by ID.
func (repo *GameRepository) GetGame(ctx context.Context, id string) (models.GameRecord, error) {
	pgConn := repo.services.Postgres

	query := `
		SELECT id, engine_color, pgn, outcome, method, started_at, finished_at
		FROM game
		WHERE id = $1
	`

	var record models.GameRecord
	err := pgConn.GetContext(ctx, &record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GameRecord{}, ErrGameNotFound
	}
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("error getting game: %w", err)
	}

	return record, nil
}

// ListGames retrieves the most recently finished games.
func (repo *GameRepository) ListGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = defaultGameListLimit
	}

	pgConn := repo.services.Postgres

	query := `
		SELECT id, engine_color, pgn, outcome, method, started_at, finished_at
		FROM game
		ORDER BY finished_at DESC
		LIMIT $1
	`

	records := make([]models.GameRecord, 0)
	err := pgConn.SelectContext(ctx, &records, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing games: %w", err)
	}

	return records, nil
}
