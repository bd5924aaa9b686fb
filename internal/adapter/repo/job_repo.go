package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nexus/internal/domain"
)

// terminalFilter excludes records the domain forbids mutating.
const terminalFilter = `status NOT IN ('succeeded', 'partial', 'failed', 'cancelled')`

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `
sesja_id, brief, platformy, marka, styl_wizualny, glos, dlugosc_sekund,
status, postep_procent, iteracje, seria_id, numer_odcinka, kontekst_serii,
wynik, koszt_usd, czas_generacji_s, bledy, utworzono, rozpoczeto, zakonczono`

// Create inserts a freshly submitted job in the queued state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	brand, err := json.Marshal(job.Brand)
	if err != nil {
		return fmt.Errorf("marshal brand: %w", err)
	}
	query := `
INSERT INTO zadania_wideo
	(sesja_id, brief, platformy, marka, styl_wizualny, glos, dlugosc_sekund,
	 status, postep_procent, iteracje, seria_id, numer_odcinka, kontekst_serii, bledy)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, NULLIF($9, ''), $10, $11, '{}');
`
	_, err = r.pool.Exec(ctx, query,
		job.SessionID,
		job.Brief,
		job.Platforms,
		brand,
		job.VisualStyle,
		job.Voice,
		job.DurationSeconds,
		job.Status,
		job.SeriesID,
		job.EpisodeNumber,
		job.SeriesContext,
	)
	return err
}

// GetBySessionID fetches a job by its session identifier.
func (r *JobRepositoryPG) GetBySessionID(ctx context.Context, sessionID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM zadania_wideo WHERE sesja_id = $1;`, sessionID)
	return scanJob(row)
}

// ClaimNext atomically promotes the oldest queued job to running. SKIP LOCKED
// keeps concurrent workers from fighting over the same record.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
UPDATE zadania_wideo
SET status = 'running', rozpoczeto = NOW()
WHERE sesja_id = (
	SELECT sesja_id FROM zadania_wideo
	WHERE status = 'queued'
	ORDER BY utworzono
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns + `;`
	row := r.pool.QueryRow(ctx, query)
	return scanJob(row)
}

// UpdateProgress raises the recorded progress. GREATEST keeps it monotonic
// even if stage updates land out of order.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, sessionID string, progress int) error {
	query := `
UPDATE zadania_wideo
SET postep_procent = GREATEST(postep_procent, $2)
WHERE sesja_id = $1 AND ` + terminalFilter + `;`
	tag, err := r.pool.Exec(ctx, query, sessionID, progress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, sessionID)
	}
	return nil
}

// AddCost atomically increments the accumulated provider spend.
func (r *JobRepositoryPG) AddCost(ctx context.Context, sessionID string, deltaUSD float64) error {
	query := `
UPDATE zadania_wideo
SET koszt_usd = koszt_usd + $2
WHERE sesja_id = $1 AND ` + terminalFilter + `;`
	tag, err := r.pool.Exec(ctx, query, sessionID, deltaUSD)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, sessionID)
	}
	return nil
}

// AppendError records a stage failure or gate rejection message.
func (r *JobRepositoryPG) AppendError(ctx context.Context, sessionID string, message string) error {
	query := `
UPDATE zadania_wideo
SET bledy = array_append(bledy, $2)
WHERE sesja_id = $1 AND ` + terminalFilter + `;`
	tag, err := r.pool.Exec(ctx, query, sessionID, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, sessionID)
	}
	return nil
}

// Finalize writes the terminal snapshot of a finished job.
func (r *JobRepositoryPG) Finalize(ctx context.Context, job *domain.Job) error {
	var result []byte
	if job.Result != nil {
		var err error
		if result, err = json.Marshal(job.Result); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}
	query := `
UPDATE zadania_wideo
SET status = $2,
    postep_procent = 100,
    iteracje = $3,
    wynik = $4,
    koszt_usd = $5,
    czas_generacji_s = $6,
    zakonczono = NOW()
WHERE sesja_id = $1 AND ` + terminalFilter + `;`
	tag, err := r.pool.Exec(ctx, query,
		job.SessionID,
		job.Status,
		job.Attempts,
		result,
		job.CostUSD,
		job.GenerationSeconds,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, job.SessionID)
	}
	return nil
}

// Cancel moves a queued or running job to cancelled.
func (r *JobRepositoryPG) Cancel(ctx context.Context, sessionID string) error {
	query := `
UPDATE zadania_wideo
SET status = 'cancelled', zakonczono = NOW()
WHERE sesja_id = $1 AND ` + terminalFilter + `;`
	tag, err := r.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, sessionID)
	}
	return nil
}

// ListRecent returns the newest jobs first.
func (r *JobRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM zadania_wideo ORDER BY utworzono DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// missReason maps an unaffected guarded update onto the right domain error.
func (r *JobRepositoryPG) missReason(ctx context.Context, sessionID string) error {
	var status domain.JobStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM zadania_wideo WHERE sesja_id = $1;`, sessionID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status.Terminal() {
		return domain.ErrJobTerminal
	}
	return domain.ErrNotFound
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job      domain.Job
		brand    []byte
		result   []byte
		seriesID *string
	)
	if err := row.Scan(
		&job.SessionID,
		&job.Brief,
		&job.Platforms,
		&brand,
		&job.VisualStyle,
		&job.Voice,
		&job.DurationSeconds,
		&job.Status,
		&job.ProgressPercent,
		&job.Attempts,
		&seriesID,
		&job.EpisodeNumber,
		&job.SeriesContext,
		&result,
		&job.CostUSD,
		&job.GenerationSeconds,
		&job.Errors,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if seriesID != nil {
		job.SeriesID = *seriesID
	}
	if len(brand) > 0 {
		if err := json.Unmarshal(brand, &job.Brand); err != nil {
			return nil, fmt.Errorf("unmarshal brand: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return &job, nil
}
