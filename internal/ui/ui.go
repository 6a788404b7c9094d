package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/tasks"
)

var _ Painter = (*Palette)(nil)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
)

// SyncFunc runs one synchronization, sending progress on the channel it is given. It must not
// close the channel.
type SyncFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	run          SyncFunc
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	phases       map[tasks.Phase]tasks.ProgressUpdate
	sweeps       list.Model
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a sync view that calls run once it starts.
func NewModel(ctx context.Context, run SyncFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.phase

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    SyncView,
		run:     run,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phases:  map[tasks.Phase]tasks.ProgressUpdate{},
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result is the finished synchronization, nil while running or after a failure.
func (m *Model) Result() *tasks.SyncResult { return m.result }

// Err is the error the sync function returned.
func (m *Model) Err() error { return m.err }

// Init starts the spinner and the synchronization.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(60, msg.Width-10))
		if m.view == ResultView {
			m.sweeps.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.cancel) && m.view == SyncView:
			m.cancel()
			return m, nil
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.sweeps, cmd = m.sweeps.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		m.phases[update.Phase] = update
		return m, tea.Batch(m.bar.SetPercent(fraction(update)), m.waitForProgress())

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		if m.result != nil {
			m.sweeps = list.New(sweepItems(m.result), list.NewDefaultDelegate(), max(m.width-4, 40), max(m.height-8, 12))
			m.sweeps.Title = "Library sync"
			m.sweeps.SetShowHelp(false)
			m.sweeps.SetFilteringEnabled(false)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan Msg, 1)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		m.doneChan <- syncCompleteMsg(result, err)
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

// waitForProgress reads the next update; once the channel is closed it yields the completion.
func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressUpdateMsg(update)
	}
}

func fraction(update tasks.ProgressUpdate) float64 {
	if update.Total <= 0 {
		return 0
	}
	return min(1, float64(update.Step)/float64(update.Total))
}

var phaseLabels = []struct {
	phase tasks.Phase
	label string
}{
	{tasks.SyncTracks, "Saved tracks"},
	{tasks.SyncAlbums, "Saved albums"},
	{tasks.SyncPlaylists, "Playlists"},
	{tasks.SyncPlaylistItems, "Playlist songs"},
}

func (m *Model) renderSync() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Synchronizing Spotify library"))
	b.WriteString("\n")

	for _, p := range phaseLabels {
		update, seen := m.phases[p.phase]
		switch {
		case !seen:
			fmt.Fprintf(&b, "  %s\n", styles.help.Render(p.label))
		case p.phase == m.progress.Phase:
			fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), p.label, styles.help.Render(update.Message))
		default:
			fmt.Fprintf(&b, "%s %s %s\n", styles.ok.Render("✓"), p.label, styles.help.Render(update.Message))
		}
	}

	fmt.Fprintf(&b, "\n%s\n\n%s", m.bar.View(), m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	elapsed := m.result.Finished.Sub(m.result.Started).Round(time.Millisecond)
	summary := styles.ok.Render(fmt.Sprintf("✓ %d songs and %d playlists in %s",
		m.result.Songs(), m.result.Playlists.Playlists, elapsed))

	var warnings string
	if errs := m.result.Errors(); len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, err := range errs {
			lines[i] = "  • " + err.Error()
		}
		warnings = "\n" + styles.warn.Render(strings.Join(lines, "\n")) + "\n"
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", summary, warnings, m.sweeps.View(), helpView)
}
