// Package export serializes the goal ledger into downloadable formats.
//
// Both formats read every record, completed or not, ordered by date, so the
// output is deterministic and diffable across runs.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/store"
)

// Format selects an export serialization.
type Format string

const (
	// FormatJSON is the structured format: an indented array of
	// {"date", "completed"} objects.
	FormatJSON Format = "json"

	// FormatCSV is the tabular format: a Date,Completed table with Yes/No
	// cells.
	FormatCSV Format = "csv"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatJSON, FormatCSV}

var errUnknownFormat = errors.New("must be json or csv")

// ParseFormat maps a selector to a Format. "structured" and "tabular" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "structured":
		return FormatJSON, nil
	case "csv", "tabular":
		return FormatCSV, nil
	default:
		return "", &store.ValidationError{Field: "format", Value: s, Err: errUnknownFormat}
	}
}

// MediaType returns the MIME type of the format.
func (f Format) MediaType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Result is a fully materialized export.
type Result struct {
	Data      []byte
	MediaType string
	Filename  string
}

// Source supplies every ledger record ordered by date.
type Source interface {
	ListAll(ctx context.Context) ([]model.Day, error)
}

// Exporter renders ledger exports.
type Exporter struct {
	source Source
	now    func() time.Time
}

// New creates an Exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source, now: time.Now}
}

// WithClock overrides the clock used to stamp filenames.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Export reads the full ledger and serializes it as format.
func (e *Exporter) Export(ctx context.Context, format Format) (*Result, error) {
	days, err := e.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(days)
	case FormatCSV:
		data, err = MarshalCSV(days)
	default:
		return nil, &store.ValidationError{Field: "format", Value: string(format), Err: errUnknownFormat}
	}
	if err != nil {
		return nil, &store.OperationError{Op: fmt.Sprintf("encoding %s export", format), Err: err}
	}

	return &Result{
		Data:      data,
		MediaType: format.MediaType(),
		Filename:  Filename(format, e.now()),
	}, nil
}

// Filename returns the suggested download name, goals_export_YYYYMMDD.ext.
func Filename(format Format, at time.Time) string {
	return fmt.Sprintf("goals_export_%s.%s", at.Format("20060102"), format.Extension())
}

// jsonDay fixes the field order of exported objects.
type jsonDay struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// MarshalJSON renders days as a two-space indented JSON array.
func MarshalJSON(days []model.Day) ([]byte, error) {
	out := make([]jsonDay, 0, len(days))
	for _, d := range days {
		out = append(out, jsonDay{Date: d.Date, Completed: d.Completed})
	}
	return json.MarshalIndent(out, "", "  ")
}

// MarshalCSV renders days as a Date,Completed table with CRLF line endings.
func MarshalCSV(days []model.Day) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write([]string{"Date", "Completed"}); err != nil {
		return nil, err
	}
	for _, d := range days {
		if err := w.Write([]string{d.Date, yesNo(d.Completed)}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
