package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinAnalysisDepth is the lowest search depth worth storing.
	MinAnalysisDepth = 1

	// MaxAnalysisDepth bounds stored search depths.
	MaxAnalysisDepth = 60

	// maxAnalysisScore bounds stored scores. Mate scores scale into the
	// millions but never past this.
	maxAnalysisScore = 1e8
)

// RegisterRequest represents the payload for worker registration.
type RegisterRequest struct {
	Hostname  string `json:"hostname"`
	GitCommit string `json:"git_commit"`
}

// RegisterResponse represents the response for worker registration.
type RegisterResponse struct {
	ClientID string `json:"client_id"`
}

// ClientStats represents worker statistics. Position is the position the
// worker is currently analyzing, or the zero value when it is idle.
type ClientStats struct {
	ID               string        `json:"id"`
	Hostname         string        `json:"hostname"`
	GitCommit        string        `json:"git_commit"`
	AnalysesComputed int           `json:"analyses_computed"`
	LastActive       time.Time     `json:"last_active"`
	Position         NormalizedFEN `json:"position"`
}

// StatsResponse represents the response for worker statistics.
type StatsResponse struct {
	ActiveClients int           `json:"active_clients"`
	ClientStats   []ClientStats `json:"client_stats"`
}

// Job represents a work job for a worker: one position to analyze to a
// given depth.
type Job struct {
	Position NormalizedFEN `json:"position"`
	Depth    int           `json:"depth"`
}

// JobResult represents the result of a completed job.
type JobResult struct {
	Analysis        Analysis `json:"analysis"`
	ComputationTime float64  `json:"computation_time"`
}

// Analysis represents one stored engine verdict about a position.
type Analysis struct {
	Position NormalizedFEN `json:"position"  db:"position"`
	Depth    int           `json:"depth"     db:"depth"`
	Score    float64       `json:"score"     db:"score"`
	BestMove string        `json:"best_move" db:"best_move"`
	Nodes    int64         `json:"nodes"     db:"nodes"`
}

// Validate checks if the analysis is valid.
func (a *Analysis) Validate() error {
	if a.Position.IsZero() {
		return errors.New("position is empty")
	}

	if a.Depth < MinAnalysisDepth || a.Depth > MaxAnalysisDepth {
		return fmt.Errorf("depth %d is out of range", a.Depth)
	}

	if a.Score < -maxAnalysisScore || a.Score > maxAnalysisScore {
		return fmt.Errorf("score %f is out of range", a.Score)
	}

	if a.Nodes < 0 {
		return fmt.Errorf("nodes %d is negative", a.Nodes)
	}

	return a.Position.ValidateMove(a.BestMove)
}

// AnalysisStats counts stored analyses per piece count and search depth.
type AnalysisStats struct {
	PieceCount int `json:"piece_count"`
	Depth      int `json:"depth"`
	Count      int `json:"count"`
}

// LookupPositionsPayload represents the payload for a position lookup
// request.
type LookupPositionsPayload struct {
	Positions []NormalizedFEN `json:"positions"`
}

// AnalysesPayload represents the payload for submitting a batch of analyses.
type AnalysesPayload struct {
	Analyses []Analysis `json:"analyses"`
}

// Validate checks if the payload is valid.
func (p *AnalysesPayload) Validate() error {
	if len(p.Analyses) == 0 {
		return errors.New("analyses is empty")
	}

	for _, analysis := range p.Analyses {
		if err := analysis.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// AnalyzeRequest asks the server to run its own engine on one position.
type AnalyzeRequest struct {
	FEN      string `json:"fen"`
	BudgetMs int    `json:"budget_ms"`
}

// VersionResponse represents the response for a version request.
type VersionResponse struct {
	Commit string `json:"commit"`
}
