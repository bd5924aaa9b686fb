package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for video generation jobs. Mutations to a
// single job are serialized: the API creates and cancels, the claiming worker
// owns everything in between.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetBySessionID(ctx context.Context, sessionID string) (*Job, error)
	// ClaimNext atomically moves the oldest queued job to running and returns
	// it. ErrNotFound when the queue is empty.
	ClaimNext(ctx context.Context) (*Job, error)
	// UpdateProgress records the current stage progress. Progress never
	// decreases and terminal jobs are left untouched.
	UpdateProgress(ctx context.Context, sessionID string, progress int) error
	// AddCost atomically increments the accumulated provider spend.
	AddCost(ctx context.Context, sessionID string, deltaUSD float64) error
	AppendError(ctx context.Context, sessionID string, message string) error
	// Finalize writes the terminal status, result payload, accumulated cost
	// and wall-clock duration. ErrJobTerminal when already finalized.
	Finalize(ctx context.Context, job *Job) error
	Cancel(ctx context.Context, sessionID string) error
	ListRecent(ctx context.Context, limit int) ([]Job, error)
}

// SeriesRepository defines persistence for narrative series.
type SeriesRepository interface {
	Create(ctx context.Context, series *Series) error
	Get(ctx context.Context, id string) (*Series, error)
	List(ctx context.Context) ([]Series, error)
	Update(ctx context.Context, series *Series) error
	Delete(ctx context.Context, id string) error
}

// StatsRepository exposes reporting aggregates over finished jobs.
type StatsRepository interface {
	PlatformStats(ctx context.Context, from, to time.Time) ([]PlatformDay, error)
}
