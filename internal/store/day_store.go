package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/goal-tracker/internal/model"
)

// monthLayout is the YYYY-MM selector accepted by Stats.
const monthLayout = "2006-01"

// ValidateDate checks that date is a real calendar date in YYYY-MM-DD form.
func ValidateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Value: date, Err: err}
	}
	return nil
}

// ListCompleted returns every date currently marked completed.
func (s *SQLiteStore) ListCompleted(ctx context.Context) ([]string, error) {
	days := []string{}
	err := s.db.SelectContext(ctx, &days,
		"SELECT date FROM completed_days WHERE completed = 1 ORDER BY date")
	if err != nil {
		return nil, &OperationError{Op: "listing completed days", Err: err}
	}
	return days, nil
}

// ListAll returns every ledger record ordered by date ascending.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Day, error) {
	days := []model.Day{}
	err := s.db.SelectContext(ctx, &days, `
		SELECT id, date, completed, created_at, updated_at
		FROM completed_days
		ORDER BY date`)
	if err != nil {
		return nil, &OperationError{Op: "listing days", Err: err}
	}
	return days, nil
}

// Toggle flips the completion flag of date and returns the new value.
// A date without a record is inserted as completed. The insert-or-flip is a
// single statement, so concurrent toggles of one date serialize in SQLite's
// write lock.
func (s *SQLiteStore) Toggle(ctx context.Context, date string) (bool, error) {
	if err := ValidateDate(date); err != nil {
		return false, err
	}

	now := time.Now().UTC()

	var completed int
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO completed_days (id, date, completed, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			completed  = 1 - completed,
			updated_at = excluded.updated_at
		RETURNING completed`,
		uuid.New().String(), date, now, now,
	).Scan(&completed)
	if err != nil {
		return false, &OperationError{Op: "toggling day " + date, Err: err}
	}

	return completed == 1, nil
}

// GetDay retrieves the record for date, or nil if the date was never toggled.
func (s *SQLiteStore) GetDay(ctx context.Context, date string) (*model.Day, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	days := []model.Day{}
	err := s.db.SelectContext(ctx, &days, `
		SELECT id, date, completed, created_at, updated_at
		FROM completed_days
		WHERE date = ?`, date)
	if err != nil {
		return nil, &OperationError{Op: "getting day " + date, Err: err}
	}
	if len(days) == 0 {
		return nil, nil
	}
	return &days[0], nil
}

// Count returns the number of records, completed or not.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM completed_days"); err != nil {
		return 0, &OperationError{Op: "counting days", Err: err}
	}
	return n, nil
}

// Stats counts completed days inside month (YYYY-MM) and across the ledger.
func (s *SQLiteStore) Stats(ctx context.Context, month string) (model.DayStats, error) {
	if _, err := time.Parse(monthLayout, month); err != nil {
		return model.DayStats{}, &ValidationError{Field: "month", Value: month, Err: err}
	}

	stats := model.DayStats{Month: month}
	err := s.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN substr(date, 1, 7) = ? THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM completed_days
		WHERE completed = 1`, month,
	).Scan(&stats.InMonth, &stats.Total)
	if err != nil {
		return model.DayStats{}, &OperationError{Op: "counting completed days", Err: err}
	}

	return stats, nil
}
