package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/services"
)

const (
	positionsKey           = "positions_to_analyze"
	positionsTTL           = 5 * time.Minute
	positionsMaxCount      = 500
	cacheRefreshLockKey    = "positions_to_analyze_refresh_lock"
	cacheRefreshLockTTL    = 10 * time.Second
	cacheRefreshCtxTimeout = 10 * time.Second

	// AnalysisStatsKey is the Redis hash holding per piece-count/depth counts.
	AnalysisStatsKey = "analysis_stats"
)

// ErrNoJobsAvailable is returned when there are no more jobs to process.
var ErrNoJobsAvailable = errors.New("no jobs available")

// AnalysisRepository handles database operations for analyses.
type AnalysisRepository struct {
	services *services.Services
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(c *fiber.Ctx) *AnalysisRepository {
	services := c.Locals("services").(*services.Services) //nolint: errcheck

	return &AnalysisRepository{
		services: services,
	}
}

func NewAnalysisRepositoryFromServices(services *services.Services) *AnalysisRepository {
	return &AnalysisRepository{
		services: services,
	}
}

// SubmitAnalyses submits a batch of analyses. An existing row is only
// replaced when the new analysis searched deeper.
func (repo *AnalysisRepository) SubmitAnalyses(ctx context.Context, payload models.AnalysesPayload) error {
	pgConn := repo.services.Postgres

	if len(payload.Analyses) == 0 {
		return nil
	}

	// Create a single VALUES clause with all the data
	valuesClause := ""
	params := make([]interface{}, 0, len(payload.Analyses)*6) //nolint:mnd

	positionsList := lo.Map(payload.Analyses, func(analysis models.Analysis, _ int) string {
		return analysis.Position.String()
	})

	for i, analysis := range payload.Analyses {
		if i > 0 {
			valuesClause += ", "
		}
		valuesClause += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			i*6+2, i*6+3, i*6+4, i*6+5, i*6+6, i*6+7) //nolint:mnd

		params = append(params,
			positionsList[i],
			analysis.Position.PieceCount(),
			analysis.Depth,
			analysis.Score,
			analysis.BestMove,
			analysis.Nodes,
		)
	}

	// Add positions array as first parameter
	params = append([]interface{}{pq.Array(positionsList)}, params...)

	query := fmt.Sprintf(`
		WITH current_depths AS (
			SELECT position, depth
			FROM analysis
			WHERE position = ANY($1)
		)
		INSERT INTO analysis (position, piece_count, depth, score, best_move, nodes)
		VALUES %s
		ON CONFLICT (position)
		DO UPDATE SET
			depth = EXCLUDED.depth,
			score = EXCLUDED.score,
			best_move = EXCLUDED.best_move,
			nodes = EXCLUDED.nodes
		WHERE EXCLUDED.depth > analysis.depth
		RETURNING
			(SELECT depth FROM current_depths WHERE position = analysis.position) as old_depth,
			depth as new_depth,
			piece_count;
	`, valuesClause)

	rows, err := pgConn.QueryxContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("error submitting analyses: %w", err)
	}
	defer rows.Close()

	redisChanges := make(map[string]int)

	for rows.Next() {
		var oldDepth sql.NullInt64
		var newDepth, pieceCount int
		if err = rows.Scan(&oldDepth, &newDepth, &pieceCount); err != nil {
			return fmt.Errorf("error scanning analysis: %w", err)
		}

		if oldDepth.Valid {
			redisChanges[fmt.Sprintf("%d:%d", pieceCount, oldDepth.Int64)]--
		}
		redisChanges[fmt.Sprintf("%d:%d", pieceCount, newDepth)]++
	}

	redisConn := repo.services.Redis

	// Update Redis in a single pipeline
	pipe := redisConn.Pipeline()
	for key, count := range redisChanges {
		pipe.HIncrBy(ctx, AnalysisStatsKey, key, int64(count))
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("error updating Redis stats: %w", err)
	}

	return nil
}

// LookupPositions looks up analyses for given positions.
func (repo *AnalysisRepository) LookupPositions(
	ctx context.Context,
	positions []models.NormalizedFEN,
) ([]models.Analysis, error) {
	pgConn := repo.services.Postgres

	positionStrings := lo.Map(positions, func(position models.NormalizedFEN, _ int) string {
		return position.String()
	})

	query := `
		SELECT position, depth, score, best_move, nodes
		FROM analysis
		WHERE position = ANY($1)
	`

	rows, err := pgConn.QueryxContext(ctx, query, pq.Array(positionStrings))
	if err != nil {
		return nil, fmt.Errorf("error looking up positions: %w", err)
	}
	defer rows.Close()

	analyses := make([]models.Analysis, 0)

	for rows.Next() {
		var analysis models.Analysis
		err = rows.StructScan(&analysis)
		if err != nil {
			return nil, fmt.Errorf("error scanning analyses: %w", err)
		}
		analyses = append(analyses, analysis)
	}

	return analyses, nil
}

func (repo *AnalysisRepository) buildInitialAnalysisStats(ctx context.Context) error {
	pgConn := repo.services.Postgres
	redisConn := repo.services.Redis

	query := `
		SELECT piece_count, depth, count(*)
		FROM analysis
		GROUP BY piece_count, depth
	`

	type statRow struct {
		PieceCount int `db:"piece_count"`
		Depth      int `db:"depth"`
		Count      int `db:"count"`
	}

	var stats []statRow
	err := pgConn.SelectContext(ctx, &stats, query)
	if err != nil {
		return fmt.Errorf("error loading analysis stats: %w", err)
	}

	// Create a map to store the stats
	statsMap := make(map[string]interface{})
	for _, stat := range stats {
		key := fmt.Sprintf("%d:%d", stat.PieceCount, stat.Depth)
		statsMap[key] = stat.Count
	}

	// Store in Redis hash
	err = redisConn.HSet(ctx, AnalysisStatsKey, statsMap).Err()
	if err != nil {
		return fmt.Errorf("error storing analysis stats in Redis: %w", err)
	}

	return nil
}

// GetAnalysisStats returns statistics about positions in the database.
func (repo *AnalysisRepository) GetAnalysisStats(ctx context.Context) ([]models.AnalysisStats, error) {
	redisConn := repo.services.Redis

	// Get all stats from Redis
	stats, err := redisConn.HGetAll(ctx, AnalysisStatsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting analysis stats from Redis: %w", err)
	}

	if len(stats) == 0 {
		err = repo.buildInitialAnalysisStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("error building initial analysis stats: %w", err)
		}

		// Try reading from Redis again after building stats
		stats, err = redisConn.HGetAll(ctx, AnalysisStatsKey).Result()
		if err != nil {
			return nil, fmt.Errorf("error getting analysis stats from Redis after build: %w", err)
		}
	}

	analysisStats := make([]models.AnalysisStats, 0)

	for key, value := range stats {
		var stat models.AnalysisStats

		// Parse piece_count:depth key
		if _, err = fmt.Sscanf(key, "%d:%d", &stat.PieceCount, &stat.Depth); err != nil {
			return nil, fmt.Errorf("error parsing analysis stats key: %w", err)
		}

		// Parse count value
		stat.Count, err = strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("error parsing analysis stats value: %w", err)
		}

		analysisStats = append(analysisStats, stat)
	}

	return analysisStats, nil
}

// tryRefreshJobCache refreshes the cache of available jobs.
func (repo *AnalysisRepository) tryRefreshJobCache(ctx context.Context) error {
	// Try to acquire the lock for cache refresh
	redisConn := repo.services.Redis
	lockAcquired, err := redisConn.SetNX(ctx, cacheRefreshLockKey, "1", cacheRefreshLockTTL).Result()

	if err != nil {
		return fmt.Errorf("error acquiring cache refresh lock: %w", err)
	}

	if !lockAcquired {
		// Someone else is refreshing the cache. Tell client to try again later.
		return nil
	}

	// We got the lock, we're responsible for refreshing the cache

	// Ensure lock is released
	defer redisConn.Del(ctx, cacheRefreshLockKey)

	analyzablePieceCounts, err := repo.getAnalyzablePieceCounts(ctx)
	if err != nil {
		return fmt.Errorf("error getting analyzable piece counts: %w", err)
	}

	return repo.refreshJobCache(ctx, analyzablePieceCounts)
}

func (repo *AnalysisRepository) getAnalyzablePieceCounts(ctx context.Context) ([]int, error) {
	analysisStats, err := repo.GetAnalysisStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting analysis stats: %w", err)
	}

	// Find piece counts that have positions needing work, use map[int]bool as set.
	analyzableMap := make(map[int]bool)
	for _, stat := range analysisStats {
		if stat.Depth < getTargetDepth(stat.PieceCount) {
			analyzableMap[stat.PieceCount] = true
		}
	}

	// Convert map to slice and sort. Endgames come first, they are the
	// cheapest to finish.
	analyzablePieceCounts := make([]int, 0, len(analyzableMap))
	for pieceCount := range analyzableMap {
		analyzablePieceCounts = append(analyzablePieceCounts, pieceCount)
	}
	sort.Ints(analyzablePieceCounts)

	return analyzablePieceCounts, nil
}

func (repo *AnalysisRepository) refreshJobCache(ctx context.Context, analyzablePieceCounts []int) error {
	redisConn := repo.services.Redis

	clientRepo := NewClientRepositoryFromServices(repo.services)
	takenPositions := clientRepo.GetTakenPositions(ctx)

	pgConn := repo.services.Postgres

	// Try to find jobs at different piece counts, starting with the lowest
	var positions []string
	for _, pieceCount := range analyzablePieceCounts {
		targetDepth := getTargetDepth(pieceCount)
		query := `
			SELECT position
			FROM analysis
			WHERE piece_count = $1
			AND depth < $2
			AND NOT (position = ANY($3))
			ORDER BY RANDOM()
			LIMIT $4
		`

		remaining := positionsMaxCount - len(positions)
		if remaining <= 0 {
			break
		}

		var newPositions []string
		err := pgConn.SelectContext(ctx, &newPositions, query, pieceCount, targetDepth, pq.Array(takenPositions), remaining)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}

			return fmt.Errorf("error getting position: %w", err)
		}

		positions = append(positions, newPositions...)
	}

	if len(positions) > 0 {
		// Delete existing list and set new values
		err := redisConn.Del(ctx, positionsKey).Err()
		if err != nil {
			return fmt.Errorf("error deleting positions from Redis: %w", err)
		}

		// Push new positions to Redis
		err = redisConn.RPush(ctx, positionsKey, positions).Err()
		if err != nil {
			return fmt.Errorf("error pushing positions to Redis: %w", err)
		}

		// Set TTL
		err = redisConn.Expire(ctx, positionsKey, positionsTTL).Err()
		if err != nil {
			return fmt.Errorf("error setting Redis TTL: %w", err)
		}
	}

	return nil
}

// tryPopJob attempts to get a job from Redis.
func (repo *AnalysisRepository) tryPopJob(ctx context.Context, clientID string) (models.Job, error) {
	redisConn := repo.services.Redis

	posStr, err := redisConn.LPop(ctx, positionsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Job{}, ErrNoJobsAvailable
		}

		return models.Job{}, fmt.Errorf("error getting position from Redis: %w", err)
	}

	position, err := models.NewNormalizedFEN(posStr)
	if err != nil {
		return models.Job{}, fmt.Errorf("error parsing position: %w", err)
	}

	job := models.Job{
		Position: position,
		Depth:    getTargetDepth(position.PieceCount()),
	}

	clientRepo := NewClientRepositoryFromServices(repo.services)

	err = clientRepo.AssignJob(ctx, clientID, job)
	if err != nil {
		return models.Job{}, fmt.Errorf("error assigning job: %w", err)
	}

	return job, nil
}

// GetJob retrieves the next available job from the database.
func (repo *AnalysisRepository) GetJob(ctx context.Context, clientID string) (models.Job, error) {
	// First try to get a position from Redis
	job, err := repo.tryPopJob(ctx, clientID)

	if err != nil {
		if errors.Is(err, ErrNoJobsAvailable) {
			// Refresh the job cache in the background. The request context
			// dies with the request, so use a fresh one.
			go func() {
				refreshCtx, cancel := context.WithTimeout(context.Background(), cacheRefreshCtxTimeout)
				defer cancel()

				if err := repo.tryRefreshJobCache(refreshCtx); err != nil {
					slog.Error("error refreshing job cache", "error", err)
				}
			}()

			// Tell client to try again later
			return models.Job{}, ErrNoJobsAvailable
		}

		// Some other error occurred
		return models.Job{}, err
	}

	// No error, return job
	return job, nil
}

// getTargetDepth returns the target search depth for a given piece count.
// Positions with fewer pieces have smaller trees, so they get deeper targets.
func getTargetDepth(pieceCount int) int {
	if pieceCount <= 8 { //nolint:mnd
		return 16 //nolint:mnd
	}

	if pieceCount <= 16 { //nolint:mnd
		return 14 //nolint:mnd
	}

	if pieceCount <= 24 { //nolint:mnd
		return 12 //nolint:mnd
	}

	return config.DefaultJobDepth
}
