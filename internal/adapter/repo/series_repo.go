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

// SeriesRepositoryPG implements domain.SeriesRepository on PostgreSQL.
// Episode metadata and the narrative arc live in jsonb columns; they are
// always read and written as a whole.
type SeriesRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSeriesRepository creates a series repository backed by PostgreSQL.
func NewSeriesRepository(pool *pgxpool.Pool) *SeriesRepositoryPG {
	return &SeriesRepositoryPG{pool: pool}
}

const seriesColumns = `
seria_id, tytul, temat, gatunek, opis, platformy, styl_wizualny, glos,
dlugosc_odcinka_s, liczba_odcinkow, luk_narracyjny, odcinki, status,
koszt_usd, utworzono`

// Create inserts a planned series.
func (r *SeriesRepositoryPG) Create(ctx context.Context, series *domain.Series) error {
	arc, episodes, err := marshalSeriesBlobs(series)
	if err != nil {
		return err
	}
	query := `
INSERT INTO serie
	(seria_id, tytul, temat, gatunek, opis, platformy, styl_wizualny, glos,
	 dlugosc_odcinka_s, liczba_odcinkow, luk_narracyjny, odcinki, status, koszt_usd)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
`
	_, err = r.pool.Exec(ctx, query,
		series.ID,
		series.Title,
		series.Topic,
		series.Genre,
		series.Description,
		series.Platforms,
		series.VisualStyle,
		series.Voice,
		series.EpisodeSeconds,
		series.EpisodeCount,
		arc,
		episodes,
		series.Status,
		series.TotalCostUSD,
	)
	return err
}

// Get fetches a series by identifier.
func (r *SeriesRepositoryPG) Get(ctx context.Context, id string) (*domain.Series, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+seriesColumns+` FROM serie WHERE seria_id = $1;`, id)
	return scanSeries(row)
}

// List returns all series, newest first.
func (r *SeriesRepositoryPG) List(ctx context.Context) ([]domain.Series, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+seriesColumns+` FROM serie ORDER BY utworzono DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *series)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of a series.
func (r *SeriesRepositoryPG) Update(ctx context.Context, series *domain.Series) error {
	arc, episodes, err := marshalSeriesBlobs(series)
	if err != nil {
		return err
	}
	query := `
UPDATE serie
SET tytul = $2,
    opis = $3,
    liczba_odcinkow = $4,
    luk_narracyjny = $5,
    odcinki = $6,
    status = $7,
    koszt_usd = $8
WHERE seria_id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		series.ID,
		series.Title,
		series.Description,
		series.EpisodeCount,
		arc,
		episodes,
		series.Status,
		series.TotalCostUSD,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a series. Jobs spawned for its episodes are kept.
func (r *SeriesRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM serie WHERE seria_id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func marshalSeriesBlobs(series *domain.Series) (arc, episodes []byte, err error) {
	if arc, err = json.Marshal(series.NarrativeArc); err != nil {
		return nil, nil, fmt.Errorf("marshal narrative arc: %w", err)
	}
	if episodes, err = json.Marshal(series.Episodes); err != nil {
		return nil, nil, fmt.Errorf("marshal episodes: %w", err)
	}
	return arc, episodes, nil
}

func scanSeries(row pgx.Row) (*domain.Series, error) {
	var (
		series   domain.Series
		arc      []byte
		episodes []byte
	)
	if err := row.Scan(
		&series.ID,
		&series.Title,
		&series.Topic,
		&series.Genre,
		&series.Description,
		&series.Platforms,
		&series.VisualStyle,
		&series.Voice,
		&series.EpisodeSeconds,
		&series.EpisodeCount,
		&arc,
		&episodes,
		&series.Status,
		&series.TotalCostUSD,
		&series.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(arc) > 0 {
		if err := json.Unmarshal(arc, &series.NarrativeArc); err != nil {
			return nil, fmt.Errorf("unmarshal narrative arc: %w", err)
		}
	}
	if len(episodes) > 0 {
		if err := json.Unmarshal(episodes, &series.Episodes); err != nil {
			return nil, fmt.Errorf("unmarshal episodes: %w", err)
		}
	}
	return &series, nil
}
