package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"nexus/internal/domain"
)

// MemoryJobRepository is an in-process domain.JobRepository with the same
// guard semantics as the PostgreSQL implementation. Handler and pipeline
// tests run against it.
type MemoryJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// NewMemoryJobRepository creates an empty in-memory job store.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*domain.Job)}
}

func (r *MemoryJobRepository) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	if clone.Status == "" {
		clone.Status = domain.JobStatusQueued
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	r.jobs[clone.SessionID] = &clone
	return nil
}

func (r *MemoryJobRepository) GetBySessionID(_ context.Context, sessionID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *MemoryJobRepository) ClaimNext(_ context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *domain.Job
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	oldest.Status = domain.JobStatusRunning
	oldest.StartedAt = &now
	clone := *oldest
	return &clone, nil
}

func (r *MemoryJobRepository) UpdateProgress(_ context.Context, sessionID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, err := r.mutable(sessionID)
	if err != nil {
		return err
	}
	if progress > job.ProgressPercent {
		job.ProgressPercent = progress
	}
	return nil
}

func (r *MemoryJobRepository) AddCost(_ context.Context, sessionID string, deltaUSD float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, err := r.mutable(sessionID)
	if err != nil {
		return err
	}
	job.CostUSD += deltaUSD
	return nil
}

func (r *MemoryJobRepository) AppendError(_ context.Context, sessionID string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, err := r.mutable(sessionID)
	if err != nil {
		return err
	}
	job.Errors = append(job.Errors, message)
	return nil
}

func (r *MemoryJobRepository) Finalize(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := r.mutable(job.SessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	stored.Status = job.Status
	stored.ProgressPercent = 100
	stored.Attempts = job.Attempts
	stored.Result = job.Result
	stored.CostUSD = job.CostUSD
	stored.GenerationSeconds = job.GenerationSeconds
	stored.FinishedAt = &now
	return nil
}

func (r *MemoryJobRepository) Cancel(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, err := r.mutable(sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	job.Status = domain.JobStatusCancelled
	job.FinishedAt = &now
	return nil
}

func (r *MemoryJobRepository) ListRecent(_ context.Context, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mutable returns the stored job if it still accepts writes. Callers hold the
// lock.
func (r *MemoryJobRepository) mutable(sessionID string) (*domain.Job, error) {
	job, ok := r.jobs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil, domain.ErrJobTerminal
	}
	return job, nil
}

// MemorySeriesRepository is an in-process domain.SeriesRepository.
type MemorySeriesRepository struct {
	mu     sync.Mutex
	series map[string]*domain.Series
}

// NewMemorySeriesRepository creates an empty in-memory series store.
func NewMemorySeriesRepository() *MemorySeriesRepository {
	return &MemorySeriesRepository{series: make(map[string]*domain.Series)}
}

func (r *MemorySeriesRepository) Create(_ context.Context, series *domain.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *series
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	r.series[clone.ID] = &clone
	return nil
}

func (r *MemorySeriesRepository) Get(_ context.Context, id string) (*domain.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	series, ok := r.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *series
	return &clone, nil
}

func (r *MemorySeriesRepository) List(_ context.Context) ([]domain.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Series, 0, len(r.series))
	for _, series := range r.series {
		out = append(out, *series)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemorySeriesRepository) Update(_ context.Context, series *domain.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[series.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *series
	r.series[series.ID] = &clone
	return nil
}

func (r *MemorySeriesRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.series, id)
	return nil
}
