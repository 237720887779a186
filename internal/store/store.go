package store

import (
	"context"

	"github.com/nhle/goal-tracker/internal/model"
)

// Ledger defines the persistence interface for per-date goal completion.
type Ledger interface {
	// ListCompleted returns every date currently marked completed.
	ListCompleted(ctx context.Context) ([]string, error)

	// ListAll returns every record, completed or not, ordered by date.
	ListAll(ctx context.Context) ([]model.Day, error)

	// Toggle flips the completion flag for date, creating the record as
	// completed if it does not exist, and returns the resulting status.
	Toggle(ctx context.Context, date string) (bool, error)

	// Stats counts completed days within month (YYYY-MM) and overall.
	Stats(ctx context.Context, month string) (model.DayStats, error)
}
