package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// pgTimestamptzToTime converts pgtype.Timestamptz to time.Time.
func pgTimestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time
	}
	return time.Time{}
}

// pgTimestamptzToTimePtr converts pgtype.Timestamptz to *time.Time.
func pgTimestamptzToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if ts.Valid {
		t := ts.Time
		return &t
	}
	return nil
}

// timeToPgTimestamptz converts time.Time to pgtype.Timestamptz.
func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// timePtrToPgTimestamptz converts *time.Time to pgtype.Timestamptz.
func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
