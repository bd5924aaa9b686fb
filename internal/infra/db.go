package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool opens a pgx pool sized for this service's access pattern: every
// running pipeline holds a connection for its progress and cost writes, so
// the ceiling follows the worker bound instead of a fixed constant.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = poolMaxConns(cfg.WorkerConcurrency)
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return pool, nil
}

// poolMaxConns reserves one connection per concurrent pipeline plus headroom
// for the claim loop and API reads, with a floor for small deployments.
func poolMaxConns(workers int64) int32 {
	const headroom = 4
	const floor = 8
	n := workers + headroom
	if n < floor {
		n = floor
	}
	return int32(n)
}
