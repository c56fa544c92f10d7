package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/repository"
	"github.com/skewerchess/skewer/internal/services"
	"github.com/skewerchess/skewer/internal/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPositions(t *testing.T) {
	baseURL := tests.BaseURL

	tests := []struct {
		name           string
		positions      []models.NormalizedFEN
		token          string
		wantStatusCode int
		wantCount      int
	}{
		{
			name:           "no auth",
			positions:      []models.NormalizedFEN{models.NewNormalizedFENMust(models.StartingFEN)},
			token:          "",
			wantStatusCode: http.StatusUnauthorized,
			wantCount:      0,
		},
		{
			name:           "invalid payload",
			positions:      nil,
			token:          tests.TestToken,
			wantStatusCode: http.StatusBadRequest,
			wantCount:      0,
		},
		{
			name:           "no results",
			positions:      []models.NormalizedFEN{models.NewNormalizedFENMust("k7/8/8/8/8/8/8/K7 w - -")},
			token:          tests.TestToken,
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload bytes.Buffer
			if tt.positions != nil {
				json.NewEncoder(&payload).Encode(models.LookupPositionsPayload{ //nolint: errcheck
					Positions: tt.positions,
				})
			}

			req, err := http.NewRequest(http.MethodPost, baseURL+"/api/positions/lookup", &payload)
			assert.NoError(t, err)

			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("x-token", tt.token)
			}

			client := &http.Client{}
			resp, err := client.Do(req)
			assert.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatusCode, resp.StatusCode)

			if tt.wantStatusCode == http.StatusOK {
				var response []models.Analysis
				err = json.NewDecoder(resp.Body).Decode(&response)
				assert.NoError(t, err)

				assert.Equal(t, tt.wantCount, len(response))
			}
		})
	}
}

func TestLookupPositionsWithResults(t *testing.T) {
	analyses := []models.Analysis{
		{
			Position: models.NewNormalizedFENMust(models.StartingFEN),
			Depth:    10,
			Score:    0.3,
			BestMove: "e2e4",
			Nodes:    100000,
		},
		{
			Position: models.NewNormalizedFENMust("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3"),
			Depth:    10,
			Score:    -0.2,
			BestMove: "e7e5",
			Nodes:    90000,
		},
		{
			Position: models.NewNormalizedFENMust("4k3/8/8/8/8/8/3Q4/4K3 w - -"),
			Depth:    16,
			Score:    950.0,
			BestMove: "d2d7",
			Nodes:    50000,
		},
		{
			Position: models.NewNormalizedFENMust("4k3/8/8/8/8/8/4P3/4K3 w - -"),
			Depth:    16,
			Score:    2.5,
			BestMove: "e2e4",
			Nodes:    40000,
		},
	}

	submitAnalyses(t, models.AnalysesPayload{Analyses: analyses})

	positions := lo.Map(analyses, func(analysis models.Analysis, _ int) models.NormalizedFEN {
		return analysis.Position
	})

	var payload bytes.Buffer
	err := json.NewEncoder(&payload).Encode(models.LookupPositionsPayload{Positions: positions})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/positions/lookup", &payload)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response []models.Analysis
	err = json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	require.Equal(t, len(analyses), len(response))

	found := make(map[string]models.Analysis)
	for _, analysis := range response {
		found[analysis.Position.String()] = analysis
	}

	for _, want := range analyses {
		got, ok := found[want.Position.String()]
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	deleteAnalyses(t, positions)
}

func TestAnalysisStatsNoAuth(t *testing.T) {
	baseURL := tests.BaseURL

	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/positions/stats", nil)
	assert.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnalysisStatsOk(t *testing.T) {
	clearAnalyses(t)

	analyses := []models.Analysis{
		{
			Position: models.NewNormalizedFENMust(models.StartingFEN),
			Depth:    12,
			Score:    0.3,
			BestMove: "e2e4",
			Nodes:    100000,
		},
		{
			Position: models.NewNormalizedFENMust("4k3/8/8/8/8/8/4P3/4K3 w - -"),
			Depth:    20,
			Score:    2.5,
			BestMove: "e2e4",
			Nodes:    40000,
		},
	}

	submitAnalyses(t, models.AnalysesPayload{Analyses: analyses})

	req, err := http.NewRequest(http.MethodGet, tests.BaseURL+"/api/positions/stats", nil)
	require.NoError(t, err)

	req.Header.Set("x-token", tests.TestToken)

	// Run the request twice
	// The first time it will build the stats and store them in Redis
	// The second time it will read from Redis
	// Both responses should be the same
	for i := 0; i < 2; i++ {
		client := &http.Client{}
		resp, err := client.Do(req)
		require.NoError(t, err)

		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var response []models.AnalysisStats
		err = json.NewDecoder(resp.Body).Decode(&response)
		require.NoError(t, err)

		require.Equal(t, 2, len(response))

		counts := make(map[[2]int]int)
		for _, stats := range response {
			counts[[2]int{stats.PieceCount, stats.Depth}] = stats.Count
		}

		require.Equal(t, 1, counts[[2]int{32, 12}])
		require.Equal(t, 1, counts[[2]int{3, 20}])
	}

	clearAnalyses(t)
}

func TestSubmitAnalysesNoAuth(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/positions/analyses", nil)
	assert.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitAnalysesInvalidPayload(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/positions/analyses", nil)
	assert.NoError(t, err)

	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}

	// No payload is an invalid payload, it's not even a valid JSON object
	resp, err := client.Do(req)
	assert.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitAnalysesValidationError(t *testing.T) {
	payload := models.AnalysesPayload{
		Analyses: []models.Analysis{
			{
				Position: models.NewNormalizedFENMust(models.StartingFEN),
				Depth:    8,
				Score:    0.3,
				BestMove: "e2e5",
				Nodes:    100,
			},
		},
	}

	var buffer bytes.Buffer
	err := json.NewEncoder(&buffer).Encode(payload)
	assert.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/positions/analyses", &buffer)
	assert.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitAnalysesOk(t *testing.T) {
	nfen := models.NewNormalizedFENMust(models.StartingFEN)

	payload := models.AnalysesPayload{
		Analyses: []models.Analysis{
			{
				Position: nfen,
				Depth:    14,
				Score:    0.25,
				BestMove: "e2e4",
				Nodes:    250000,
			},
		},
	}

	submitAnalyses(t, payload)

	services, err := services.InitServices(config.LoadServerConfig())
	assert.NoError(t, err)

	// Check if the analysis was stored in the database
	analysisRepo := repository.NewAnalysisRepositoryFromServices(services)
	foundPositions, err := analysisRepo.LookupPositions(context.Background(), []models.NormalizedFEN{nfen})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(foundPositions))
	assert.Equal(t, payload.Analyses[0], foundPositions[0])

	// Cleanup inserted item from database
	postgresConn := services.Postgres
	result, err := postgresConn.Exec("DELETE FROM analysis WHERE position = $1", nfen.String())
	assert.NoError(t, err)

	// Ensure that exactly one row was deleted
	rowsAffected, err := result.RowsAffected()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), rowsAffected)
}

func submitAnalyses(t *testing.T, payload models.AnalysesPayload) {
	t.Helper()

	var buffer bytes.Buffer
	err := json.NewEncoder(&buffer).Encode(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/positions/analyses", &buffer)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func deleteAnalyses(t *testing.T, positions []models.NormalizedFEN) {
	t.Helper()

	services, err := services.InitServices(config.LoadServerConfig())
	require.NoError(t, err)

	positionStrings := lo.Map(positions, func(position models.NormalizedFEN, _ int) string {
		return position.String()
	})

	result, err := services.Postgres.Exec(
		"DELETE FROM analysis WHERE position = ANY($1)",
		pq.Array(positionStrings),
	)
	require.NoError(t, err)

	rowsAffected, err := result.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(len(positions)), rowsAffected)
}

// clearAnalyses empties the analysis table and the cached stats, so stats
// assertions see only what the test inserts.
func clearAnalyses(t *testing.T) {
	t.Helper()

	services, err := services.InitServices(config.LoadServerConfig())
	require.NoError(t, err)

	_, err = services.Postgres.Exec("DELETE FROM analysis")
	require.NoError(t, err)

	_, err = services.Redis.Del(t.Context(), repository.AnalysisStatsKey).Result()
	require.NoError(t, err)
}
