// Package calendar is a terminal month view of the goal ledger.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-tracker/internal/keys"
	"github.com/nhle/goal-tracker/internal/model"
	"github.com/nhle/goal-tracker/internal/store"
	"github.com/nhle/goal-tracker/internal/sync"
	"github.com/nhle/goal-tracker/internal/theme"
	"github.com/nhle/goal-tracker/internal/ui"
)

// storeTimeout bounds a single ledger call from the UI.
const storeTimeout = 5 * time.Second

// DaysLoadedMsg is sent when the completed set has been read from the ledger.
type DaysLoadedMsg struct {
	Days []string
	Err  error
}

// ToggledMsg is sent when a toggle has been applied.
type ToggledMsg struct {
	Date      string
	Completed bool
	Err       error
}

// Model is the root Bubble Tea model of the terminal calendar.
type Model struct {
	ledger    store.Ledger
	poller    *sync.Poller
	keys      *keys.KeyMap
	help      help.Model
	layout    ui.Layout
	now       func() time.Time
	cursor    time.Time
	completed map[string]bool
	showHelp  bool
	err       error
}

// New creates a calendar positioned on today.
func New(ledger store.Ledger, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		ledger:    ledger,
		keys:      keys.DefaultKeyMap(),
		help:      help.New(),
		layout:    ui.NewLayout(80, 24),
		now:       now,
		cursor:    truncateDay(now()),
		completed: make(map[string]bool),
	}
}

// WithPoller makes the calendar follow p's snapshots, picking up toggles made
// elsewhere while it is open. The calendar stops p when it quits.
func (m Model) WithPoller(p *sync.Poller) Model {
	m.poller = p
	return m
}

// Init loads the completed days.
func (m Model) Init() tea.Cmd {
	if m.poller != nil {
		return m.poller.Start()
	}
	return m.loadDays()
}

// Update handles key presses and ledger results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case DaysLoadedMsg:
		m.applyDays(msg.Days, msg.Err)
		return m, nil

	case sync.SnapshotMsg:
		m.applyDays(msg.Days, msg.Err)
		if m.poller == nil {
			return m, nil
		}
		return m, m.poller.WaitForNextResult()

	case ToggledMsg:
		m.err = msg.Err
		if msg.Err == nil {
			if msg.Completed {
				m.completed[msg.Date] = true
			} else {
				delete(m.completed, msg.Date)
			}
			// A snapshot read before the toggle may still be queued.
			if m.poller != nil {
				m.poller.Refresh()
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.poller != nil {
			m.poller.Stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Left):
		m.cursor = m.cursor.AddDate(0, 0, -1)
	case key.Matches(msg, m.keys.Right):
		m.cursor = m.cursor.AddDate(0, 0, 1)
	case key.Matches(msg, m.keys.Up):
		m.cursor = m.cursor.AddDate(0, 0, -7)
	case key.Matches(msg, m.keys.Down):
		m.cursor = m.cursor.AddDate(0, 0, 7)
	case key.Matches(msg, m.keys.PrevMonth):
		m.cursor = shiftMonth(m.cursor, -1)
	case key.Matches(msg, m.keys.NextMonth):
		m.cursor = shiftMonth(m.cursor, 1)
	case key.Matches(msg, m.keys.Today):
		m.cursor = truncateDay(m.now())
	case key.Matches(msg, m.keys.Refresh):
		if m.poller != nil {
			m.poller.Refresh()
			return m, nil
		}
		return m, m.loadDays()
	case key.Matches(msg, m.keys.Toggle):
		return m, m.toggle(m.cursor.Format(model.DateLayout))
	}
	return m, nil
}

func (m *Model) applyDays(days []string, err error) {
	m.err = err
	if err != nil {
		return
	}
	m.completed = make(map[string]bool, len(days))
	for _, d := range days {
		m.completed[d] = true
	}
}

func (m Model) loadDays() tea.Cmd {
	ledger := m.ledger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		days, err := ledger.ListCompleted(ctx)
		return DaysLoadedMsg{Days: days, Err: err}
	}
}

func (m Model) toggle(date string) tea.Cmd {
	ledger := m.ledger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		completed, err := ledger.Toggle(ctx, date)
		return ToggledMsg{Date: date, Completed: completed, Err: err}
	}
}

// View renders the month grid inside the header/status frame.
func (m Model) View() string {
	header := m.layout.RenderHeader(
		"Daily Goals",
		fmt.Sprintf("%s  ·  %d this month  ·  %d total",
			m.cursor.Format("January 2006"), m.monthCount(), len(m.completed)),
	)

	body := []string{m.renderMonth()}
	if m.err != nil {
		body = append(body, theme.ErrorStyle.Render("error: "+m.err.Error()))
	}
	if m.showHelp {
		m.help.ShowAll = true
		body = append(body, theme.HelpStyle.Render(m.help.View(m.keys)))
	}

	statusText := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.poller != nil {
		if last := m.poller.Status().LastSync; !last.IsZero() {
			statusText += "  ·  synced " + last.Format("15:04:05")
		}
	}
	status := m.layout.RenderStatusBar(statusText)

	return m.layout.RenderWithFrame(
		header,
		lipgloss.JoinVertical(lipgloss.Left, body...),
		status,
	)
}

func (m Model) renderMonth() string {
	var b strings.Builder

	weekdays := make([]string, 0, 7)
	for _, d := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		weekdays = append(weekdays, theme.WeekdayStyle.Render(d))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, weekdays...))

	today := truncateDay(m.now())
	for _, week := range monthWeeks(m.cursor) {
		cells := make([]string, 0, 7)
		for _, day := range week {
			if day.IsZero() {
				cells = append(cells, theme.DayStyle(false, false, false).Render(""))
				continue
			}
			date := day.Format(model.DateLayout)
			style := theme.DayStyle(m.completed[date], day.Equal(m.cursor), day.Equal(today))
			cells = append(cells, style.Render(fmt.Sprintf("%d", day.Day())))
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return theme.PanelStyle.Render(b.String())
}

func (m Model) monthCount() int {
	prefix := m.cursor.Format("2006-01-")
	n := 0
	for d := range m.completed {
		if strings.HasPrefix(d, prefix) {
			n++
		}
	}
	return n
}

// Cursor returns the selected date.
func (m Model) Cursor() string {
	return m.cursor.Format(model.DateLayout)
}

// IsCompleted reports whether the calendar shows date as completed.
func (m Model) IsCompleted(date string) bool {
	return m.completed[date]
}

// monthWeeks lays out the month containing t as Sunday-first weeks. Cells
// outside the month are zero times.
func monthWeeks(t time.Time) [][7]time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday())

	var weeks [][7]time.Time
	var week [7]time.Time
	col := offset
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		week[col] = d
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]time.Time{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// shiftMonth moves t by n months, clamping the day to the target month's
// length so Jan 31 + 1 month is Feb 28/29 rather than Mar 2/3.
func shiftMonth(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
