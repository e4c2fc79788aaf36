package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws an inline progress bar with bubbletea.
// It does not take over the screen: search results are printed to stdout
// after Stop returns.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *searchModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newSearchModel(tracker, cfg.Instance, cfg.Query)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.tracker.Stats().Stage {
		r.tracker.SetStage(event.Stage, event.Total)
	}
	r.tracker.Update(event.Current, event.Total)

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddFailure(event)

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete, 0)

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}

	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// searchModel is the bubbletea model for a search run.
type searchModel struct {
	tracker     *ProgressTracker
	width       int
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
	instance    string
	query       string
}

func newSearchModel(tracker *ProgressTracker, instance, query string) *searchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange))

	p := progress.New(
		progress.WithSolidFill(ColorOrange),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &searchModel{
		tracker:     tracker,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
		instance:    instance,
		query:       query,
	}
}

// Init implements tea.Model.
func (m *searchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = msg.Width - 40
		if m.progressBar.Width < 20 {
			m.progressBar.Width = 20
		}

	case progressUpdateMsg, errorMsg:
		// State lives in the tracker.
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *searchModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	stats := m.tracker.Stats()
	lines := []string{m.renderHeader()}

	if stats.Total == 0 {
		lines = append(lines, fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Label.Render(stats.Stage.String()+" projects...")))
	} else {
		bar := m.progressBar.ViewAs(stats.Progress)
		count := m.styles.Active.Render(fmt.Sprintf("%d/%d", stats.Current, stats.Total))
		line := fmt.Sprintf("%s %s %s", m.spinner.View(), bar, count)
		if stats.ETA > 0 {
			line += m.styles.Label.Render("  ETA " + formatDuration(stats.ETA))
		}
		lines = append(lines, line)
	}

	if stats.FailCount > 0 {
		lines = append(lines, m.styles.Error.Render(
			fmt.Sprintf("✗ %d failed (last: %s)", stats.FailCount, truncate(stats.LastFailure, m.width-24))))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m *searchModel) renderHeader() string {
	var parts []string
	if m.instance != "" {
		parts = append(parts, m.styles.Header.Render(m.instance))
	}
	if m.query != "" {
		parts = append(parts, m.styles.Label.Render(fmt.Sprintf("%q", truncate(m.query, 40))))
	}
	if len(parts) == 0 {
		return m.styles.Header.Render("gitlab-search")
	}
	return strings.Join(parts, m.styles.Dim.Render(" • "))
}

func (m *searchModel) renderComplete() string {
	line := m.styles.Success.Render("✓") + " " + fmt.Sprintf("%s searched in %s, %s",
		pluralize(m.stats.Projects, "project"),
		formatDuration(m.stats.Duration),
		pluralize(m.stats.Hits, "hit"))
	if m.stats.Failed > 0 {
		line += " " + m.styles.Error.Render(fmt.Sprintf("(%d failed)", m.stats.Failed))
	}
	return line + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(10 * time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncate shortens s to maxLen runes, keeping the tail.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 4 {
		maxLen = 4
	}
	if len(r) <= maxLen {
		return s
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

var _ Renderer = (*TUIRenderer)(nil)
