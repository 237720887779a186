package model

import "time"

// DateLayout is the calendar-date format used for ledger keys.
const DateLayout = "2006-01-02"

// Day is one ledger entry: whether the daily goal was completed on Date.
// A date with no Day row is implicitly not completed.
type Day struct {
	ID        string    `json:"-" db:"id"`
	Date      string    `json:"date" db:"date"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// DayStats holds completed-day counters for a month and for the whole ledger.
type DayStats struct {
	Month   string `json:"month"`
	InMonth int    `json:"in_month"`
	Total   int    `json:"total"`
}
