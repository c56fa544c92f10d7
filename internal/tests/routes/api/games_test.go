package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/services"
	"github.com/skewerchess/skewer/internal/tests"
	"github.com/stretchr/testify/require"
)

func postGame(t *testing.T, record models.GameRecord) *http.Response {
	t.Helper()

	var buffer bytes.Buffer
	err := json.NewEncoder(&buffer).Encode(record)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, tests.BaseURL+"/api/games", &buffer)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)

	return resp
}

func TestListGamesNoAuth(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, tests.BaseURL+"/api/games", nil)
	require.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetGameNotFound(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, tests.BaseURL+"/api/games/"+uuid.NewString(), nil)
	require.NoError(t, err)

	req.Header.Set("x-token", tests.TestToken)

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaveGameValidationError(t *testing.T) {
	record := models.GameRecord{
		EngineColor: "purple",
		PGN:         "1. e4 e5 *",
		Outcome:     models.OutcomeUnknown,
	}

	resp := postGame(t, record)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveListAndGetGame(t *testing.T) {
	record := models.GameRecord{
		EngineColor: models.EngineColorWhite,
		PGN:         "1. e4 e5 2. Nf3 Nc6 1-0",
		Outcome:     models.OutcomeWhiteWon,
		Method:      "Resignation",
		StartedAt:   time.Now().UTC().Truncate(time.Microsecond),
		FinishedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	// The server assigns an ID when the record has none
	resp := postGame(t, record)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var saved models.GameRecord
	err := json.NewDecoder(resp.Body).Decode(&saved)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	record.ID = saved.ID

	client := &http.Client{}

	// The freshly saved game should show up in the list
	req, err := http.NewRequest(http.MethodGet, tests.BaseURL+"/api/games", nil)
	require.NoError(t, err)

	req.Header.Set("x-token", tests.TestToken)

	listResp, err := client.Do(req)
	require.NoError(t, err)

	defer listResp.Body.Close()

	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listed []models.GameRecord
	err = json.NewDecoder(listResp.Body).Decode(&listed)
	require.NoError(t, err)

	var found *models.GameRecord
	for i := range listed {
		if listed[i].ID == record.ID {
			found = &listed[i]
			break
		}
	}
	require.NotNil(t, found)
	requireSameGame(t, record, *found)

	// Fetching by ID should return the same record
	req, err = http.NewRequest(http.MethodGet, tests.BaseURL+"/api/games/"+record.ID, nil)
	require.NoError(t, err)

	req.Header.Set("x-token", tests.TestToken)

	getResp, err := client.Do(req)
	require.NoError(t, err)

	defer getResp.Body.Close()

	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var got models.GameRecord
	err = json.NewDecoder(getResp.Body).Decode(&got)
	require.NoError(t, err)
	requireSameGame(t, record, got)

	// Cleanup inserted item from database
	services, err := services.InitServices(config.LoadServerConfig())
	require.NoError(t, err)

	result, err := services.Postgres.Exec("DELETE FROM game WHERE id = $1", record.ID)
	require.NoError(t, err)

	rowsAffected, err := result.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), rowsAffected)
}

// requireSameGame compares records field by field. Timestamps round-trip
// through postgres with microsecond precision, so they are compared loosely.
func requireSameGame(t *testing.T, want, got models.GameRecord) {
	t.Helper()

	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.EngineColor, got.EngineColor)
	require.Equal(t, want.PGN, got.PGN)
	require.Equal(t, want.Outcome, got.Outcome)
	require.Equal(t, want.Method, got.Method)
	require.WithinDuration(t, want.StartedAt, got.StartedAt, time.Second)
	require.WithinDuration(t, want.FinishedAt, got.FinishedAt, time.Second)
}
