package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/session"
)

// Actions are the session operations reachable from the watch view.
// *flow.Controller satisfies it.
type Actions interface {
	Validate(ctx context.Context) (session.Record, error)
	Logout(ctx context.Context) (session.Record, error)
	ClearNotices(ctx context.Context) (session.Record, error)
}

// RecordMsg carries a committed record into the program.
type RecordMsg session.Record

// ActionDoneMsg reports the end of an action started from the keyboard.
type ActionDoneMsg struct {
	Action string
	Err    error
}

type updatesClosedMsg struct{}

// StatusModel is the live session view. What it shows about the session
// comes only from the last record the machine delivered.
type StatusModel struct {
	ctx     context.Context
	record  session.Record
	updates <-chan session.Record
	actions Actions

	spinner  spinner.Model
	styles   Styles
	running  string
	failure  string
	quitting bool
}

// NewStatusModel starts from rec and follows updates, typically the channel
// returned by Follow.
func NewStatusModel(ctx context.Context, rec session.Record, updates <-chan session.Record, actions Actions) StatusModel {
	styles := DefaultStyles()
	return StatusModel{
		ctx:     ctx,
		record:  rec,
		updates: updates,
		actions: actions,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Spinner)),
		styles:  styles,
	}
}

// Follow subscribes to m and returns a channel of committed records. The
// channel holds only the latest record; a slow reader skips intermediate
// ones. Call stop to unsubscribe.
func Follow(m *session.Machine) (updates <-chan session.Record, stop func()) {
	ch := make(chan session.Record, 1)
	stop = m.Subscribe(func(rec session.Record) {
		for {
			select {
			case ch <- rec:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	return ch, stop
}

// Record returns the record currently displayed.
func (m StatusModel) Record() session.Record {
	return m.record
}

// Init initializes the TUI model (required by Bubble Tea)
func (m StatusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForRecord())
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case RecordMsg:
		m.record = session.Record(msg)
		return m, m.waitForRecord()

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case ActionDoneMsg:
		m.running = ""
		m.failure = ""
		if msg.Err != nil && !errors.Is(msg.Err, session.ErrStaleOutcome) {
			m.failure = msg.Action + " failed: " + msg.Err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m StatusModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}

	if m.running != "" || m.actions == nil {
		return m, nil
	}

	var (
		action string
		run    func(context.Context) (session.Record, error)
	)
	switch msg.String() {
	case "v":
		action, run = "validate", m.actions.Validate
	case "o":
		action, run = "logout", m.actions.Logout
	case "c":
		action, run = "clear", m.actions.ClearNotices
	default:
		return m, nil
	}

	m.running = action
	ctx := m.ctx
	return m, func() tea.Msg {
		_, err := run(ctx)
		return ActionDoneMsg{Action: action, Err: err}
	}
}

func (m StatusModel) waitForRecord() tea.Cmd {
	updates, ctx := m.updates, m.ctx
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case rec, ok := <-updates:
			if !ok {
				return updatesClosedMsg{}
			}
			return RecordMsg(rec)
		case <-ctx.Done():
			return updatesClosedMsg{}
		}
	}
}

// View renders the TUI (required by Bubble Tea)
func (m StatusModel) View() string {
	var b strings.Builder
	b.WriteString(RenderRecord(m.record, m.styles))
	b.WriteString("\n")

	if m.quitting {
		return b.String()
	}

	if m.running != "" || m.record.IsLoading {
		label := m.running
		if label == "" {
			label = "waiting for server"
		}
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render(label+"..."))
		b.WriteString("\n")
	}
	if m.failure != "" {
		b.WriteString(m.styles.Error.Render(m.failure))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	b.WriteString("\n")
	return b.String()
}

func (m StatusModel) renderHelpLine() string {
	keys := []struct{ key, desc string }{
		{"v", "validate"},
		{"o", "logout"},
		{"c", "clear"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.styles.Key.Render(k.key)+" "+m.styles.Muted.Render(k.desc))
	}
	return m.styles.Help.Render(strings.Join(parts, "  "))
}
