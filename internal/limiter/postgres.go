package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed fixed-window limiter.
type PG struct {
	pool    pgxQuerier
	window  time.Duration
	maxHits int
	now     func() time.Time
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxHits int) *PG {
	return NewPGWithQuerier(pool, window, maxHits)
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxHits int) *PG {
	return &PG{pool: q, window: window, maxHits: maxHits, now: time.Now}
}

// Allow counts a hit; the window restarts once it has elapsed.
func (l *PG) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const q = `
INSERT INTO rate_limits (key, window_start, hits)
VALUES ($1, now(), 1)
ON CONFLICT (key) DO UPDATE
SET
  hits = CASE WHEN now() - rate_limits.window_start >= $2::interval THEN 1 ELSE rate_limits.hits + 1 END,
  window_start = CASE WHEN now() - rate_limits.window_start >= $2::interval THEN now() ELSE rate_limits.window_start END
RETURNING hits, window_start`
	var (
		hits  int
		start time.Time
	)
	if err := l.pool.QueryRow(ctx, q, key, l.window).Scan(&hits, &start); err != nil {
		return false, 0, err
	}
	if hits <= l.maxHits {
		return true, 0, nil
	}
	retry := start.Add(l.window).Sub(l.now())
	if retry < 0 {
		retry = 0
	}
	return false, retry, nil
}
