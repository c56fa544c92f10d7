package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/skewerchess/skewer/internal/board"
	"github.com/skewerchess/skewer/internal/config"
	"github.com/skewerchess/skewer/internal/engine"
	"github.com/skewerchess/skewer/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	heartbeatInterval = time.Minute
	errorRetryDelay   = 10 * time.Second

	// jobBudget bounds the search time of a single job. Shallow jobs finish
	// long before it, deep endgame jobs get cut off at whatever depth the
	// budget allowed.
	jobBudget = 5 * time.Minute
)

// Worker runs one job loop against the server. Each worker registers with
// its own client ID, so the server tracks the position every worker is
// computing.
type Worker struct {
	apiClient *APIClient
	verbose   bool
}

func NewWorker(config *config.WorkerConfig, verbose bool) *Worker {
	return &Worker{
		apiClient: NewAPIClient(config, verbose),
		verbose:   verbose,
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(heartbeatInterval):
		}

		err := w.apiClient.Heartbeat()
		if err != nil {
			log.Printf("Failed to send heartbeat: %v", err)
		}
	}
}

// sleepRetry waits out the retry delay, or returns false when the context
// ends first.
func sleepRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(errorRetryDelay):
		return true
	}
}

func (w *Worker) doJobsLoop(ctx context.Context) error {
	jobCount := 0
	totalJobTimeSec := 0.0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		job, err := w.apiClient.GetJob()
		if err != nil {
			log.Printf("Failed to get job: %v", err)
			if !sleepRetry(ctx) {
				return ctx.Err()
			}
			continue
		}

		pieceCount := job.Position.PieceCount()
		log.Printf("Got job %d | %d pieces | depth %d:", jobCount+1, pieceCount, job.Depth)
		for _, line := range job.Position.AsciiArtLines() {
			log.Printf("%s", line)
		}

		jobResult, err := w.doJob(job)
		if err != nil {
			log.Printf("Failed to do job: %v", err)
			if !sleepRetry(ctx) {
				return ctx.Err()
			}
			continue
		}

		jobCount++
		totalJobTimeSec += jobResult.ComputationTime
		avgJobTimeSeconds := totalJobTimeSec / float64(jobCount)
		log.Printf("Total jobs: %d | Average time: %.2f sec", jobCount, avgJobTimeSeconds)

		err = w.apiClient.SubmitJobResult(*jobResult)
		if err != nil {
			log.Printf("Failed to submit job result: %v", err)
			continue
		}
	}
}

// doJob searches the job's position to the requested depth.
func (w *Worker) doJob(job models.Job) (*models.JobResult, error) {
	pos, err := board.NewPosition(job.Position.FullFEN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse job position: %w", err)
	}

	cfg := engine.DefaultConfig()
	cfg.MaxDepth = job.Depth
	cfg.DeadlineCeiling = jobBudget

	eng := engine.NewEngine(cfg)

	startTime := time.Now()

	result, err := eng.Think(pos, pos.Turn(), engine.NewTurnClock(jobBudget+cfg.PanicReserve))
	if err != nil {
		return nil, fmt.Errorf("failed to search position: %w", err)
	}

	// A position with one legal move completes no deepening pass; record it
	// at the minimum depth.
	if result.Depth == 0 {
		result.Depth = 1
	}

	analysis := models.Analysis{
		Position: job.Position,
		Depth:    result.Depth,
		Score:    result.Score,
		Nodes:    result.Nodes,
	}
	if result.Move != nil {
		analysis.BestMove = result.Move.String()
	}

	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}

	return &models.JobResult{
		Analysis:        analysis,
		ComputationTime: time.Since(startTime).Seconds(),
	}, nil
}

// Run starts the worker's heartbeat and job loops and blocks until the
// context ends.
func (w *Worker) Run(ctx context.Context) error {
	go w.heartbeatLoop(ctx)
	return w.doJobsLoop(ctx)
}

// RunPool runs the configured number of workers in parallel until the
// context ends or a worker fails.
func RunPool(ctx context.Context, cfg *config.WorkerConfig, verbose bool) error {
	g, ctx := errgroup.WithContext(ctx)

	for t := 0; t < cfg.Threads; t++ {
		w := NewWorker(cfg, verbose)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}
