package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG keeps counters in admin_key_failures. Failures older than window
// restart the count; maxFails failures inside it block for blockFor.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Limiter = (*PG)(nil)

func NewPG(q pgxQuerier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	if maxFails < 1 {
		maxFails = 1
	}
	return &PG{pool: q, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// HashIP returns a stable hash for a client address so raw IPs are never stored.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

const (
	selectBlockSQL = `SELECT blocked_until FROM admin_key_failures WHERE ip_hash = $1`

	resetSQL = `
INSERT INTO admin_key_failures (ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, 0, 'epoch', $2)
ON CONFLICT (ip_hash)
DO UPDATE SET fail_count = 0, blocked_until = 'epoch', updated_at = $2`

	failureSQL = `
INSERT INTO admin_key_failures (ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, 1, 'epoch', $2)
ON CONFLICT (ip_hash) DO UPDATE
SET fail_count = CASE WHEN $2 - admin_key_failures.updated_at > $3::interval THEN 1
                      ELSE admin_key_failures.fail_count + 1 END,
    updated_at = $2
RETURNING fail_count`

	blockSQL = `UPDATE admin_key_failures SET blocked_until = $2 WHERE ip_hash = $1`
)

func (l *PG) Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error) {
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, selectBlockSQL, ipHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if now := l.now(); blockedUntil.After(now) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *PG) Success(ctx context.Context, ipHash []byte) error {
	_, err := l.pool.Exec(ctx, resetSQL, ipHash, l.now())
	return err
}

func (l *PG) Failure(ctx context.Context, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()
	var fails int
	if err := l.pool.QueryRow(ctx, failureSQL, ipHash, now, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}
	if _, err := l.pool.Exec(ctx, blockSQL, ipHash, now.Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
