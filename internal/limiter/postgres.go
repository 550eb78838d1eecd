package limiter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter: one request per key per cooldown,
// shared by every process using the same database.
type PG struct {
	pool     pgxQuerier
	cooldown time.Duration
	now      func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, cooldown time.Duration) *PG {
	return &PG{pool: q, cooldown: cooldown, now: time.Now}
}

// Allow claims the key if its cooldown elapsed; otherwise reports the wait.
func (l *PG) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	const claim = `
INSERT INTO faucet_limiter (key, last_at)
VALUES ($1, now())
ON CONFLICT (key) DO UPDATE SET last_at = now()
WHERE faucet_limiter.last_at < now() - $2::interval
RETURNING last_at`
	var lastAt time.Time
	err := l.pool.QueryRow(ctx, claim, key, l.cooldown).Scan(&lastAt)
	switch {
	case err == nil:
		return true, 0, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, 0, err
	}

	const q = `SELECT last_at FROM faucet_limiter WHERE key=$1`
	if err := l.pool.QueryRow(ctx, q, key).Scan(&lastAt); err != nil {
		return false, 0, err
	}
	wait := lastAt.Add(l.cooldown).Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	return false, wait, nil
}

// Reset forgets the key (e.g. after the account was cleared).
func (l *PG) Reset(ctx context.Context, key string) error {
	const q = `DELETE FROM faucet_limiter WHERE key=$1`
	_, err := l.pool.Exec(ctx, q, strings.ToLower(strings.TrimSpace(key)))
	return err
}
