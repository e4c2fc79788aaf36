package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_ReturnsErrorForNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestSearchModel_EnumeratingView(t *testing.T) {
	// Given: a fresh model
	model := newSearchModel(NewProgressTracker(), "work", "needle")
	model.styles = NoColorStyles()

	// When: rendering before discovery
	view := model.View()

	// Then: the header and the enumeration state are shown
	assert.Contains(t, view, "work")
	assert.Contains(t, view, `"needle"`)
	assert.Contains(t, view, "Enumerating projects...")
}

func TestSearchModel_ProgressView(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StageSearching, 10)
	tracker.Update(3, 10)
	tracker.AddFailure(ErrorEvent{Project: "group/broken"})
	model := newSearchModel(tracker, "", "")
	model.styles = NoColorStyles()

	view := model.View()

	assert.Contains(t, view, "gitlab-search")
	assert.Contains(t, view, "3/10")
	assert.Contains(t, view, "1 failed (last: group/broken)")
}

func TestSearchModel_CompleteQuits(t *testing.T) {
	// Given: a model
	model := newSearchModel(NewProgressTracker(), "work", "")
	model.styles = NoColorStyles()

	// When: the completion message arrives
	_, cmd := model.Update(completeMsg(CompletionStats{Projects: 2, Hits: 5, Duration: 2 * time.Second}))

	// Then: the summary is shown and the program quits
	assert.NotNil(t, cmd)
	assert.Equal(t, "✓ 2 projects searched in 2s, 5 hits\n", model.View())
}

func TestSearchModel_WindowResize(t *testing.T) {
	model := newSearchModel(NewProgressTracker(), "", "")

	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, model.width)
	assert.Equal(t, 80, model.progressBar.Width)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{2 * time.Minute, "2m"},
		{125 * time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...efgh", truncate("abcdefgh", 7))
}
