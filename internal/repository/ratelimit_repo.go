package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRateLimitRepository implements RateLimitRepository using SQLite.
// The counter lives in the shared database rather than process memory so the
// daily ceiling holds across restarts and multiple instances.
type SQLiteRateLimitRepository struct {
	db *sql.DB
}

// NewSQLiteRateLimitRepository creates a new rate limit repository.
func NewSQLiteRateLimitRepository(db *sql.DB) *SQLiteRateLimitRepository {
	return &SQLiteRateLimitRepository{db: db}
}

// CheckAndConsume atomically takes one slot for day when the counter is below
// ceiling. The guarded upsert is a single statement, so two concurrent callers
// racing for the day's last slot cannot both win.
func (r *SQLiteRateLimitRepository) CheckAndConsume(ctx context.Context, day string, ceiling int) (bool, error) {
	now := time.Now().Format(time.RFC3339)

	var count int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rate_limits (day, count, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(day) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
		WHERE rate_limits.count < ?
		RETURNING count
	`, day, now, ceiling).Scan(&count)

	if err == sql.ErrNoRows {
		// Guard rejected the update: the day's ceiling is exhausted.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume rate limit slot: %w", err)
	}
	if count > ceiling {
		// Ceiling lowered after rows were written. Treat as denied.
		return false, nil
	}
	return true, nil
}

// Count returns the counter value for day, 0 when no slot has been taken.
func (r *SQLiteRateLimitRepository) Count(ctx context.Context, day string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT count FROM rate_limits WHERE day = ?", day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count, nil
}
