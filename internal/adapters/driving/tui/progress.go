package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/codexai/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/codexai/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codexai/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// PollInterval is how often the view refreshes the ingestion status.
const PollInterval = 200 * time.Millisecond

const barPadding = 4

// RunFunc performs the ingestion.
type RunFunc func(ctx context.Context) (*driving.IngestResult, error)

// StatusFunc reports progress of the running ingestion.
type StatusFunc func(ctx context.Context) (*driving.IngestStatus, error)

// IngestModel shows a spinner, a progress bar and file counts for one
// ingestion run.
type IngestModel struct {
	ctx    context.Context
	cancel context.CancelFunc

	title  string
	run    RunFunc
	status StatusFunc

	bar     progress.Model
	spinner spinner.Model
	help    help.Model
	styles  *styles.Styles
	keys    *keymap.KeyMap

	current   driving.IngestStatus
	result    *driving.IngestResult
	err       error
	done      bool
	cancelled bool
}

// NewIngestModel creates the progress model. Cancelling from the keyboard
// cancels the context handed to run.
func NewIngestModel(ctx context.Context, title string, run RunFunc, status StatusFunc) *IngestModel {
	ctx, cancel := context.WithCancel(ctx)
	s := styles.DefaultStyles()
	from, to := s.Gradient()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	return &IngestModel{
		ctx:     ctx,
		cancel:  cancel,
		title:   title,
		run:     run,
		status:  status,
		bar:     progress.New(progress.WithGradient(from, to)),
		spinner: sp,
		help:    help.New(),
		styles:  s,
		keys:    keymap.DefaultKeyMap(),
	}
}

// Init starts the run, the spinner and the first poll.
func (m *IngestModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), poll())
}

func (m *IngestModel) start() tea.Cmd {
	return func() tea.Msg {
		res, err := m.run(m.ctx)
		return messages.IngestFinished{Result: res, Err: err}
	}
}

func poll() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return messages.PollStatus{}
	})
}

func (m *IngestModel) fetch() tea.Cmd {
	return func() tea.Msg {
		st, err := m.status(m.ctx)
		return messages.StatusPolled{Status: st, Err: err}
	}
}

// Update handles messages.
func (m *IngestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if keymap.Matches(msg.String(), m.keys.Cancel) && !m.done {
			m.cancelled = true
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = max(msg.Width-barPadding, 10)
		return m, nil

	case messages.PollStatus:
		if m.done {
			return m, nil
		}
		return m, m.fetch()

	case messages.StatusPolled:
		if msg.Err == nil && msg.Status != nil {
			m.current = *msg.Status
		}
		if m.done {
			return m, nil
		}
		return m, poll()

	case messages.IngestFinished:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		if msg.Result != nil {
			m.current.FilesProcessed = m.current.FilesTotal
		}
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current state.
func (m *IngestModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(m.bar.ViewAs(1))
		b.WriteString("\n")
		return b.String()
	}

	state := "Indexing"
	if m.cancelled {
		state = "Cancelling"
	}
	fmt.Fprintf(&b, "%s %s %s\n\n", m.spinner.View(), state, m.counts())
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *IngestModel) counts() string {
	s := fmt.Sprintf("%d/%d files", m.current.FilesProcessed, m.current.FilesTotal)
	if m.current.FilesFailed > 0 {
		s += " " + m.styles.Error.Render(fmt.Sprintf("(%d failed)", m.current.FilesFailed))
	}
	return s
}

// Percent is the processed share of files, in [0, 1].
func (m *IngestModel) Percent() float64 {
	if m.current.FilesTotal <= 0 {
		return 0
	}
	return min(float64(m.current.FilesProcessed)/float64(m.current.FilesTotal), 1)
}

// Result returns the outcome once the model has finished.
func (m *IngestModel) Result() (*driving.IngestResult, error) {
	if !m.done {
		return nil, errors.New("ingestion did not finish")
	}
	return m.result, m.err
}

// RunIngest runs the progress view until the ingestion finishes.
func RunIngest(ctx context.Context, title string, run RunFunc, status StatusFunc, opts ...tea.ProgramOption) (*driving.IngestResult, error) {
	m := NewIngestModel(ctx, title, run, status)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	fm, ok := final.(*IngestModel)
	if !ok {
		return nil, errors.New("progress view: unexpected model")
	}
	return fm.Result()
}
