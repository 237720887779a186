// Package sync keeps long-lived views of the ledger fresh by re-reading it
// in the background.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/goal-tracker/internal/store"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the outcome of the most recent poll.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SnapshotMsg is a tea.Msg carrying the completed set read by a poll.
type SnapshotMsg struct {
	Days []string
	Err  error
}

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 10 * time.Second

// fetchTimeout is the maximum time allowed for a single ledger read.
const fetchTimeout = 5 * time.Second

// Poller re-reads the completed set on an interval so writes made by other
// processes (the web calendar, the CLI) show up.
type Poller struct {
	ledger    store.Ledger
	interval  time.Duration
	now       func() time.Time
	status    SyncStatus
	resultCh  chan SnapshotMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller over ledger.
func New(ledger store.Ledger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		ledger:    ledger,
		interval:  interval,
		now:       time.Now,
		resultCh:  make(chan SnapshotMsg, 4),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that delivers
// the first SnapshotMsg. Calling Start twice returns nil.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already pending.
	}
}

// Status returns the outcome of the most recent poll.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// WaitForNextResult returns a tea.Cmd that waits for the next snapshot.
// Call it after handling each SnapshotMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetch()
		case <-p.triggerCh:
			p.fetch()
		}
	}
}

// fetch reads the completed set and publishes it on the result channel.
func (p *Poller) fetch() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	days, err := p.ledger.ListCompleted(ctx)
	if err != nil {
		p.setStatus(SyncError, err)
		p.sendResult(SnapshotMsg{Err: err})
		return
	}

	p.setStatus(SyncIdle, nil)
	p.sendResult(SnapshotMsg{Days: days})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = p.now()
	}
}

// sendResult publishes without blocking. When the queue is full the oldest
// snapshot is dropped to make room for msg.
func (p *Poller) sendResult(msg SnapshotMsg) {
	for {
		select {
		case p.resultCh <- msg:
			return
		default:
		}

		select {
		case <-p.resultCh:
		default:
		}
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}
