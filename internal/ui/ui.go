package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tmacdonald/prefsweep/internal/engine"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	RunView
	ResultView
)

// messageTail bounds how many recent progress lines the run view shows.
const messageTail = 6

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	view   ViewState
	engine *engine.Engine
	opts   engine.RunOpts

	width  int
	height int

	progressChan chan engine.ProgressUpdate
	progress     engine.ProgressUpdate
	recent       []string
	completed    int
	succeeded    int
	skipped      int
	failed       int
	cancelling   bool

	summary     *engine.RunSummary
	err         error
	failureList list.Model
	hasFailures bool

	help help.Model
	keys keyMap
}

type progressUpdateMsg engine.ProgressUpdate

type runCompleteMsg struct {
	summary *engine.RunSummary
	err     error
}

// NewModel creates a new TUI model around a configured engine and run options.
func NewModel(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, opts engine.RunOpts) *Model {
	return &Model{
		ctx:    ctx,
		cancel: cancel,
		view:   ConfirmView,
		engine: eng,
		opts:   opts,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init waits for the operator's confirmation; nothing runs until they accept.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.failureList.Width() == 0 {
			m.failureList.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			return m.handleRunKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = engine.ProgressUpdate(msg)
		m.recordUpdate(engine.ProgressUpdate(msg))
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.summary = msg.summary
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		if m.summary != nil && len(m.summary.Failures) > 0 {
			items := make([]list.Item, len(m.summary.Failures))
			for i, f := range m.summary.Failures {
				items[i] = failureItem{failure: f}
			}
			m.failureList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.failureList.Title = "Failed updates"
			m.failureList.SetSize(m.width-4, m.height-12)
			m.hasFailures = true
		}
		return m, nil
	}

	if m.view == ResultView && m.hasFailures {
		var cmd tea.Cmd
		m.failureList, cmd = m.failureList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		return m, tea.Quit
	case "y", "enter":
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		// Stop planning and let in-flight calls finish; the run still ends
		// with a summary.
		m.cancelling = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		if m.cancelling || m.ctx.Err() != nil {
			return m, tea.Quit
		}
		m.resetRunState()
		m.view = ConfirmView
		return m, nil
	}

	if m.hasFailures {
		var cmd tea.Cmd
		m.failureList, cmd = m.failureList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) resetRunState() {
	m.progress = engine.ProgressUpdate{}
	m.recent = nil
	m.completed = 0
	m.succeeded = 0
	m.skipped = 0
	m.failed = 0
	m.summary = nil
	m.err = nil
	m.hasFailures = false
}

// recordUpdate keeps the rolling message tail and the live outcome counters.
func (m *Model) recordUpdate(update engine.ProgressUpdate) {
	if update.Message != "" {
		m.recent = append(m.recent, update.Message)
		if len(m.recent) > messageTail {
			m.recent = m.recent[len(m.recent)-messageTail:]
		}
	}

	if outcome, ok := update.Data.(engine.Outcome); ok {
		m.completed++
		switch outcome.Kind {
		case engine.OutcomeSuccess:
			m.succeeded++
		case engine.OutcomeSkipped:
			m.skipped++
		case engine.OutcomeFailed:
			m.failed++
		}
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan engine.ProgressUpdate, 50)

	go func() {
		summary, err := m.engine.Run(m.ctx, m.opts, m.progressChan)
		m.summary = summary
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{summary: m.summary, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{summary: m.summary, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Sweep notification preferences?")

	roles := make([]string, len(m.opts.Roles))
	for i, role := range m.opts.Roles {
		roles[i] = role.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nTerms:     %s\n", strings.Join(m.opts.TermIDs, ", "))
	fmt.Fprintf(&b, "Frequency: %s\n", m.opts.Frequency)
	if len(roles) > 0 {
		fmt.Fprintf(&b, "Roles:     %s\n", strings.Join(roles, ", "))
	}
	if len(m.opts.Excluded) > 0 {
		fmt.Fprintf(&b, "Excluded:  %s\n", strings.Join(m.opts.Excluded, ", "))
	}
	fmt.Fprintf(&b, "Workers:   %d\n", m.opts.Workers)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Sweeping preferences")
	if m.cancelling {
		title = styles.warn.Render("Cancelling, letting in-flight updates finish...")
	}

	var phase string
	switch m.progress.Phase {
	case engine.Connect:
		phase = "Checking credential..."
	case engine.Enumerate:
		phase = "Enumerating terms and courses..."
	case engine.Plan:
		phase = "Planning category updates..."
	case engine.Execute:
		phase = fmt.Sprintf("Applying updates (%d done: %s %s %s)",
			m.completed,
			styles.ok.Render(fmt.Sprintf("%d ok", m.succeeded)),
			styles.warn.Render(fmt.Sprintf("%d skipped", m.skipped)),
			styles.err.Render(fmt.Sprintf("%d failed", m.failed)))
	default:
		phase = "Working..."
	}

	tail := styles.help.Render(strings.Join(m.recent, "\n"))
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, phase, tail)
}

func (m *Model) renderResult() string {
	if m.summary == nil {
		return styles.err.Render(fmt.Sprintf("Run failed: %v\n\nPress q to quit", m.err))
	}

	var title string
	switch {
	case m.summary.Fatal != "":
		title = styles.err.Render("✗ Sweep aborted")
	case m.summary.Failed > 0:
		title = styles.warn.Render("Sweep finished with failures")
	default:
		title = styles.ok.Render("✓ Sweep complete")
	}

	info := fmt.Sprintf(
		"\nCourses: %d  Users: %d  Planned: %d\nSucceeded: %d  Skipped: %d  Failed: %d  Excluded: %d\nElapsed: %s",
		m.summary.Courses, m.summary.Users, m.summary.Planned,
		m.summary.Succeeded, m.summary.Skipped, m.summary.Failed, m.summary.Excluded,
		m.summary.Elapsed.Round(10*time.Millisecond),
	)

	var extra string
	if m.summary.Fatal != "" {
		extra = "\n\n" + styles.err.Render(m.summary.Fatal)
	}
	if n := len(m.summary.SkippedBranches); n > 0 {
		extra += "\n\n" + styles.warn.Render(fmt.Sprintf("%d branches skipped during enumeration", n))
	}

	var failures string
	if m.hasFailures {
		failures = "\n\n" + m.failureList.View()
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s%s%s\n\n%s", title, info, extra, failures, helpView)
}
