package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-tracker/internal/logging"
	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/server"
	"github.com/nhle/goal-tracker/internal/store"
	"github.com/nhle/goal-tracker/tests/testutil"
)

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, ledger store.Ledger) (*server.Server, *httptest.Server) {
	t.Helper()

	srv := server.New(server.Config{
		Ledger: ledger,
		Logger: logging.Discard(),
		Now:    func() time.Time { return fixedNow },
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return srv, ts
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}

func TestToggleAndList(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewTestStore(t))

	for _, date := range []string{"2024-03-01", "2024-03-02", "2024-03-02"} {
		resp, err := http.Post(ts.URL+"/api/days/"+date, "", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/days")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		CompletedDays []string `json:"completed_days"`
	}
	decode(t, resp.Body, &body)
	assert.Equal(t, []string{"2024-03-01"}, body.CompletedDays)
}

func TestToggle_ResponseBody(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewTestStore(t))

	var body struct {
		Success   bool `json:"success"`
		Completed bool `json:"completed"`
	}

	resp, err := http.Post(ts.URL+"/api/days/2024-03-01", "", nil)
	require.NoError(t, err)
	decode(t, resp.Body, &body)
	resp.Body.Close()
	assert.True(t, body.Success)
	assert.True(t, body.Completed)

	resp, err = http.Post(ts.URL+"/api/days/2024-03-01", "", nil)
	require.NoError(t, err)
	decode(t, resp.Body, &body)
	resp.Body.Close()
	assert.True(t, body.Success)
	assert.False(t, body.Completed)
}

func TestToggle_InvalidDateIsBadRequest(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, ts := newTestServer(t, s)

	resp, err := http.Post(ts.URL+"/api/days/2024-13-40", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decode(t, resp.Body, &body)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "2024-13-40")

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// brokenLedger fails every operation with a storage error.
type brokenLedger struct{}

var errDisk = &store.OperationError{Op: "toggling day", Err: errors.New("disk I/O error at /var/lib/goals.db")}

func (brokenLedger) ListCompleted(context.Context) ([]string, error) { return nil, errDisk }
func (brokenLedger) ListAll(context.Context) ([]model.Day, error) { return nil, errDisk }
func (brokenLedger) Toggle(context.Context, string) (bool, error) { return false, errDisk }
func (brokenLedger) Stats(context.Context, string) (model.DayStats, error) {
	return model.DayStats{}, errDisk
}

func TestStorageErrorsAreHidden(t *testing.T) {
	_, ts := newTestServer(t, brokenLedger{})

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/days/2024-03-01"},
		{http.MethodGet, "/api/days"},
		{http.MethodGet, "/api/export/json"},
		{http.MethodGet, "/api/stats"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "disk I/O")
			assert.Contains(t, string(raw), "internal storage error")
		})
	}
}

func TestExportDownload(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedDays(t, s, "2024-03-01", "2024-03-02", "2024-03-02")
	_, ts := newTestServer(t, s)

	resp, err := http.Get(ts.URL + "/api/export/csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="goals_export_20240315.csv"`, resp.Header.Get("Content-Disposition"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Date,Completed\r\n2024-03-01,Yes\r\n2024-03-02,No\r\n", string(raw))

	resp, err = http.Get(ts.URL + "/api/export/json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var days []map[string]any
	decode(t, resp.Body, &days)
	assert.Equal(t, []map[string]any{
		{"date": "2024-03-01", "completed": true},
		{"date": "2024-03-02", "completed": false},
	}, days)
}

func TestExport_UnknownFormat(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewTestStore(t))

	resp, err := http.Get(ts.URL + "/api/export/xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStats_DefaultsToCurrentMonth(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedDays(t, s, "2024-03-01", "2024-03-09", "2024-02-28")
	_, ts := newTestServer(t, s)

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats model.DayStats
	decode(t, resp.Body, &stats)
	assert.Equal(t, model.DayStats{Month: "2024-03", InMonth: 2, Total: 3}, stats)

	resp2, err := http.Get(ts.URL + "/api/stats?month=2024-02")
	require.NoError(t, err)
	defer resp2.Body.Close()
	decode(t, resp2.Body, &stats)
	assert.Equal(t, 1, stats.InMonth)
}

func TestIndexAndStatic(t *testing.T) {
	_, ts := newTestServer(t, testutil.NewTestStore(t))

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	resp, err = http.Get(ts.URL + "/static/app.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLiveFeedBroadcastsToggles(t *testing.T) {
	srv, ts := newTestServer(t, testutil.NewTestStore(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var ev server.Event
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, server.EventHello, ev.Type)
	assert.Equal(t, 1, srv.Hub().ClientCount())

	resp, err := http.Post(ts.URL+"/api/days/2024-03-05", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, server.EventToggle, ev.Type)
	assert.Equal(t, "2024-03-05", ev.Date)
	assert.True(t, ev.Completed)
}

func TestStartStop(t *testing.T) {
	srv := server.New(server.Config{
		Addr:   "127.0.0.1:0",
		Ledger: testutil.NewTestStore(t),
		Logger: logging.Discard(),
	})
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}

func TestNewStartsNoGoroutines(t *testing.T) {
	ledger := testutil.NewTestStore(t)
	before := runtime.NumGoroutine()

	for range 50 {
		server.New(server.Config{Ledger: ledger, Logger: logging.Discard()})
	}

	assert.LessOrEqual(t, runtime.NumGoroutine(), before+5)
}

func TestHubCloseBeforeRun(t *testing.T) {
	hub := server.NewHub(logging.Discard())
	hub.Publish(server.Event{Type: server.EventToggle, Date: "2024-03-01", Completed: true})

	done := make(chan struct{})
	go func() {
		hub.Close()
		hub.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a hub that never ran")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
