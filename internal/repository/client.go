package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/skewerchess/skewer/internal/models"
	"github.com/skewerchess/skewer/internal/services"
)

const (
	ClientsKey = "clients"
	ClientsTTL = 300 * time.Second
)

var ErrClientNotFound = errors.New("client not found")

type ClientRepository struct {
	services *services.Services
}

func NewClientRepository(c *fiber.Ctx) *ClientRepository {
	return &ClientRepository{
		services: c.Locals("services").(*services.Services),
	}
}

func NewClientRepositoryFromServices(services *services.Services) *ClientRepository {
	return &ClientRepository{
		services: services,
	}
}

// RegisterClient registers a new worker and returns its ID
func (repo *ClientRepository) RegisterClient(ctx context.Context, req models.RegisterRequest) (models.RegisterResponse, error) {
	clientID := uuid.New().String()

	clientStats := models.ClientStats{
		ID:               clientID,
		Hostname:         req.Hostname,
		GitCommit:        req.GitCommit,
		AnalysesComputed: 0,
		LastActive:       time.Now(),
	}

	err := repo.saveClientStats(ctx, clientStats)
	if err != nil {
		return models.RegisterResponse{}, err
	}

	return models.RegisterResponse{ClientID: clientID}, nil
}

// UpdateHeartbeat updates the last active timestamp for a worker
func (repo *ClientRepository) UpdateHeartbeat(ctx context.Context, clientID string) error {
	clientStats, err := repo.GetClientStats(ctx, clientID)
	if err != nil {
		return err
	}

	clientStats.LastActive = time.Now()

	return repo.saveClientStats(ctx, clientStats)
}

// GetClientStatsList retrieves statistics for all workers
func (repo *ClientRepository) GetClientStatsList(ctx context.Context) (models.StatsResponse, error) {
	redisConn := repo.services.Redis

	// Get all clients from Redis hash
	clients, err := redisConn.HGetAll(ctx, ClientsKey).Result()
	if err != nil {
		return models.StatsResponse{}, fmt.Errorf("error getting clients: %w", err)
	}

	stats := make([]models.ClientStats, 0, len(clients))
	for _, jsonData := range clients {
		var clientStats models.ClientStats
		err := json.Unmarshal([]byte(jsonData), &clientStats)
		if err != nil {
			return models.StatsResponse{}, fmt.Errorf("error unmarshaling client stats: %w", err)
		}
		stats = append(stats, clientStats)
	}

	// Sort such that the most recently active workers are first
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].LastActive.After(stats[j].LastActive)
	})

	return models.StatsResponse{
		ActiveClients: len(stats),
		ClientStats:   stats,
	}, nil
}

// GetClientStats retrieves statistics for a specific worker
func (repo *ClientRepository) GetClientStats(ctx context.Context, clientID string) (models.ClientStats, error) {
	redisConn := repo.services.Redis

	jsonData, err := redisConn.HGet(ctx, ClientsKey, clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ClientStats{}, ErrClientNotFound
	}

	if err != nil {
		return models.ClientStats{}, fmt.Errorf("error getting client: %w", err)
	}

	var clientStats models.ClientStats
	if err := json.Unmarshal(jsonData, &clientStats); err != nil {
		return models.ClientStats{}, fmt.Errorf("error unmarshaling client stats: %w", err)
	}

	return clientStats, nil
}

// AssignJob marks a worker as busy with a job
func (repo *ClientRepository) AssignJob(ctx context.Context, clientID string, job models.Job) error {
	clientStats, err := repo.GetClientStats(ctx, clientID)
	if err != nil {
		return err
	}

	clientStats.Position = job.Position

	return repo.saveClientStats(ctx, clientStats)
}

// CompleteJob marks a job as completed and updates worker stats
func (repo *ClientRepository) CompleteJob(ctx context.Context, clientID string) error {
	clientStats, err := repo.GetClientStats(ctx, clientID)
	if err != nil {
		return err
	}

	clientStats.AnalysesComputed++

	// Free the position, so the job refresh no longer excludes it
	clientStats.Position = models.NormalizedFEN{}

	return repo.saveClientStats(ctx, clientStats)
}

// GetTakenPositions returns all the positions currently assigned to workers
func (repo *ClientRepository) GetTakenPositions(ctx context.Context) []string {
	redisConn := repo.services.Redis

	// Get all clients from Redis hash
	clients, err := redisConn.HGetAll(ctx, ClientsKey).Result()
	if err != nil {
		return nil
	}

	takenPositions := make([]string, 0, len(clients))
	for _, jsonData := range clients {
		var clientStats models.ClientStats
		err := json.Unmarshal([]byte(jsonData), &clientStats)
		if err != nil || clientStats.Position.IsZero() {
			continue
		}
		takenPositions = append(takenPositions, clientStats.Position.String())
	}

	return takenPositions
}

// saveClientStats writes worker stats to Redis and resets the hash TTL.
func (repo *ClientRepository) saveClientStats(ctx context.Context, clientStats models.ClientStats) error {
	redisConn := repo.services.Redis

	jsonData, err := json.Marshal(clientStats)
	if err != nil {
		return fmt.Errorf("error marshaling client stats: %w", err)
	}

	// Store in Redis hash and reset TTL
	err = redisConn.HSet(ctx, ClientsKey, clientStats.ID, jsonData).Err()
	if err != nil {
		return fmt.Errorf("error storing client: %w", err)
	}

	err = redisConn.Expire(ctx, ClientsKey, ClientsTTL).Err()
	if err != nil {
		return fmt.Errorf("error setting TTL: %w", err)
	}

	return nil
}
