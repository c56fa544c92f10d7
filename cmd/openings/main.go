package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/freeeve/pgn/v2"
	"github.com/skewerchess/skewer/internal/board"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/worker"
)

const (
	seedChunkSize   = 100
	lookupBatchSize = 100

	// seedDepth is deliberately shallow: the openings importer only plants
	// positions in the database, the worker fleet deepens them later.
	seedDepth = 1

	seedMoveBudget = time.Second
)

func main() {
	config.SetLogLevel()

	plies := flag.Int("plies", 4, "enumerate openings up to this many plies")
	maxPositions := flag.Int("max-positions", 100000, "stop enumerating after this many positions")
	flag.Parse()

	if *plies < 1 || *plies > config.MaxOpeningPlies {
		slog.Error("Invalid ply count", "min", 1, "max", config.MaxOpeningPlies, "got", *plies)
		os.Exit(1)
	}

	cfg := config.LoadWorkerConfig()
	client := worker.NewAPIClient(cfg, false)

	positions := enumerateOpenings(*plies, *maxPositions)
	slog.Info("Enumerated opening positions", "plies", *plies, "count", len(positions))

	if err := seedPositions(positions, client); err != nil {
		slog.Error("Failed to seed positions", "error", err)
		os.Exit(1)
	}
}

// enumerateOpenings walks the opening tree and collects every distinct
// position up to the given depth. Transpositions collapse to one entry.
func enumerateOpenings(plies, maxPositions int) []models.NormalizedFEN {
	seen := make(map[models.NormalizedFEN]struct{})
	positions := make([]models.NormalizedFEN, 0)

	add := func(pos *pgn.GameState) bool {
		if len(positions) >= maxPositions {
			return false
		}

		nfen, err := models.NewNormalizedFEN(pos.ToFEN())
		if err != nil {
			slog.Warn("Skipping position with unusable FEN", "error", err)
			return true
		}

		if _, ok := seen[nfen]; ok {
			return true
		}
		seen[nfen] = struct{}{}
		positions = append(positions, nfen)
		return true
	}

	start := pgn.NewStartingPosition()
	add(start)

	enum := pgn.NewPositionEnumeratorDFS(pgn.NewStartingPosition())
	enum.EnumerateDFS(plies, func(index uint64, pos *pgn.GameState, depth int) bool {
		return add(pos)
	})

	return positions
}

func seedPositions(positions []models.NormalizedFEN, client *worker.APIClient) error {
	slog.Info("Looking up positions in DB", "count", len(positions))

	foundPositions, err := lookupExistingPositions(client, positions)
	if err != nil {
		return fmt.Errorf("failed to lookup existing positions: %w", err)
	}

	seedable := make([]models.NormalizedFEN, 0)
	for _, pos := range positions {
		if _, found := foundPositions[pos]; !found {
			seedable = append(seedable, pos)
		}
	}

	if len(seedable) == 0 {
		slog.Info("No new positions to seed")
		return nil
	}

	slog.Info("Seeding new positions", "count", len(seedable))

	return processPositionsInChunks(seedable, client)
}

func lookupExistingPositions(
	client *worker.APIClient,
	positions []models.NormalizedFEN,
) (map[models.NormalizedFEN]bool, error) {
	foundPositions := make(map[models.NormalizedFEN]bool)

	for i := 0; i < len(positions); i += lookupBatchSize {
		end := i + lookupBatchSize
		if end > len(positions) {
			end = len(positions)
		}

		batch := positions[i:end]

		analyses, err := client.LookupPositions(batch)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup positions: %w", err)
		}

		for _, analysis := range analyses {
			foundPositions[analysis.Position] = true
		}
	}

	return foundPositions, nil
}

func processPositionsInChunks(seedable []models.NormalizedFEN, client *worker.APIClient) error {
	engineCfg := engine.DefaultConfig()
	engineCfg.MaxDepth = seedDepth
	eng := engine.NewEngine(engineCfg)

	totalSeconds := 0.0

	chunkCount := int(math.Ceil(float64(len(seedable)) / seedChunkSize))
	for chunkID := range chunkCount {
		chunkStart := seedChunkSize * chunkID
		chunkEnd := seedChunkSize * (chunkID + 1)
		if chunkEnd > len(seedable) {
			chunkEnd = len(seedable)
		}

		chunk := seedable[chunkStart:chunkEnd]

		analyses, seconds, err := analyzeChunk(chunk, eng)
		if err != nil {
			return fmt.Errorf("failed to analyze chunk %d: %w", chunkID, err)
		}

		totalSeconds += seconds

		if err = client.SaveAnalyses(analyses); err != nil {
			return fmt.Errorf("failed to save analyses: %w", err)
		}

		// Calculate ETA
		average := totalSeconds / float64(chunkEnd)
		remainingPositions := len(seedable) - chunkEnd
		etaSeconds := average * float64(remainingPositions)
		eta := time.Now().Add(time.Duration(etaSeconds * float64(time.Second)))

		slog.Info("Processed chunk",
			"chunk_id", chunkID+1,
			"processed", chunkEnd,
			"total", len(seedable),
			"seconds", fmt.Sprintf("%7.3f", seconds),
			"eta", eta.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func analyzeChunk(chunk []models.NormalizedFEN, eng *engine.Engine) ([]models.Analysis, float64, error) {
	analyses := make([]models.Analysis, 0, len(chunk))

	before := time.Now()

	for _, nfen := range chunk {
		pos, err := board.NewPosition(nfen.FullFEN())
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse position: %w", err)
		}

		result, err := eng.Think(pos, pos.Turn(), engine.NewTurnClock(seedMoveBudget))
		if err != nil {
			// Checkmate and stalemate positions have nothing to analyze.
			slog.Debug("Skipping position", "position", nfen.String(), "error", err)
			continue
		}

		if result.Depth == 0 {
			result.Depth = 1
		}

		analysis := models.Analysis{
			Position: nfen,
			Depth:    result.Depth,
			Score:    result.Score,
			Nodes:    result.Nodes,
		}
		if result.Move != nil {
			analysis.BestMove = result.Move.String()
		}

		if err := analysis.Validate(); err != nil {
			slog.Warn("Skipping invalid analysis", "position", nfen.String(), "error", err)
			continue
		}

		analyses = append(analyses, analysis)
	}

	after := time.Now()
	seconds := after.Sub(before).Seconds()

	return analyses, seconds, nil
}
