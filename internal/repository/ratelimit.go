package repository

import (
	"context"
	"fmt"
	"time"
)

const checkAndIncrementRateLimit = `
INSERT INTO rate_limits (key, window_start, count)
VALUES ($1, $2, 1)
ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limits.count + 1
RETURNING count
`

// CheckAndIncrementRateLimit counts one request for key in the window
// starting at window and returns the new count.
func (q *Queries) CheckAndIncrementRateLimit(ctx context.Context, key string, window time.Time) (int, error) {
	var count int
	if err := q.db.QueryRow(ctx, checkAndIncrementRateLimit, key, timeToPgTimestamptz(window)).Scan(&count); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}
	return count, nil
}

const deleteStaleRateLimits = `DELETE FROM rate_limits WHERE window_start < $1`

func (q *Queries) DeleteStaleRateLimits(ctx context.Context, before time.Time) error {
	if _, err := q.db.Exec(ctx, deleteStaleRateLimits, timeToPgTimestamptz(before)); err != nil {
		return fmt.Errorf("delete stale rate limits: %w", err)
	}
	return nil
}
