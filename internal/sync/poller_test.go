package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/sync"
	"github.com/nhle/goal-tracker/tests/testutil"
)

func nextSnapshot(t *testing.T, p *sync.Poller, first bool) sync.SnapshotMsg {
	t.Helper()

	cmd := p.WaitForNextResult()
	if first {
		cmd = p.Start()
	}
	require.NotNil(t, cmd)

	done := make(chan any, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		snap, ok := msg.(sync.SnapshotMsg)
		require.True(t, ok, "expected SnapshotMsg, got %T", msg)
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return sync.SnapshotMsg{}
	}
}

func TestPoller_InitialSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedDays(t, s, "2024-03-01", "2024-03-02")

	p := sync.New(s, time.Hour)
	t.Cleanup(p.Stop)

	snap := nextSnapshot(t, p, true)
	require.NoError(t, snap.Err)
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-03-02"}, snap.Days)

	status := p.Status()
	assert.Equal(t, sync.SyncIdle, status.State)
	assert.False(t, status.LastSync.IsZero())
}

func TestPoller_RefreshPicksUpWrites(t *testing.T) {
	s := testutil.NewTestStore(t)

	p := sync.New(s, time.Hour)
	t.Cleanup(p.Stop)

	snap := nextSnapshot(t, p, true)
	require.NoError(t, snap.Err)
	assert.Empty(t, snap.Days)

	_, err := s.Toggle(context.Background(), "2024-03-05")
	require.NoError(t, err)

	p.Refresh()
	snap = nextSnapshot(t, p, false)
	require.NoError(t, snap.Err)
	assert.Equal(t, []string{"2024-03-05"}, snap.Days)
}

func TestPoller_StartTwice(t *testing.T) {
	p := sync.New(testutil.NewTestStore(t), time.Hour)
	t.Cleanup(p.Stop)

	require.NotNil(t, p.Start())
	assert.Nil(t, p.Start())
}

type failingLedger struct{}

func (failingLedger) ListCompleted(context.Context) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func (failingLedger) ListAll(context.Context) ([]model.Day, error) {
	return nil, errors.New("disk on fire")
}

func (failingLedger) Toggle(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}

func (failingLedger) Stats(context.Context, string) (model.DayStats, error) {
	return model.DayStats{}, errors.New("disk on fire")
}

func TestPoller_ReportsErrors(t *testing.T) {
	p := sync.New(failingLedger{}, time.Hour)
	t.Cleanup(p.Stop)

	snap := nextSnapshot(t, p, true)
	require.Error(t, snap.Err)
	assert.Equal(t, sync.SyncError, p.Status().State)
}
