package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nexus/internal/domain"
)

// StatsRepositoryPG reads the daily platform aggregate view.
type StatsRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a stats repository backed by PostgreSQL.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepositoryPG {
	return &StatsRepositoryPG{pool: pool}
}

// PlatformStats returns per-day aggregates within [from, to].
func (r *StatsRepositoryPG) PlatformStats(ctx context.Context, from, to time.Time) ([]domain.PlatformDay, error) {
	query := `
SELECT dzien, liczba_zadan, sukcesy, porazki, sredni_wynik,
       sredni_koszt_usd, calkowity_koszt_usd, sredni_czas_s
FROM v_statystyki_platformy
WHERE dzien >= $1::date AND dzien <= $2::date
ORDER BY dzien;
`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PlatformDay
	for rows.Next() {
		var day domain.PlatformDay
		if err := rows.Scan(
			&day.Day,
			&day.Total,
			&day.Succeeded,
			&day.Failed,
			&day.AverageScore,
			&day.AverageCostUSD,
			&day.TotalCostUSD,
			&day.AverageSeconds,
		); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}
