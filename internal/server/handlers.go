package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nhle/goal-tracker/internal/export"
	"github.com/nhle/goal-tracker/internal/store"
)

// errInternal is what clients see for storage failures; the cause is logged.
const errInternal = "internal storage error"

type daysResponse struct {
	CompletedDays []string `json:"completed_days"`
}

type toggleResponse struct {
	Success   bool   `json:"success"`
	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "index page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.ledger.ListCompleted(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, daysResponse{CompletedDays: days})
}

func (s *Server) handleToggleDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")

	completed, err := s.ledger.Toggle(r.Context(), date)
	if err != nil {
		status, msg := s.classify(r, err)
		writeJSON(w, status, toggleResponse{Success: false, Error: msg})
		return
	}

	s.logger.Info("day toggled", "date", date, "completed", completed)
	s.hub.Publish(Event{Type: EventToggle, Date: date, Completed: completed})

	writeJSON(w, http.StatusOK, toggleResponse{Success: true, Completed: completed})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.exporter.Export(r.Context(), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.now().Format("2006-01")
	}

	stats, err := s.ledger.Stats(r.Context(), month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// classify maps ledger errors to a status code and a client-safe message.
// Validation messages are echoed; storage failures are logged and hidden.
func (s *Server) classify(r *http.Request, err error) (int, string) {
	var vErr *store.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Error()
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	return http.StatusInternalServerError, errInternal
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := s.classify(r, err)
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
