package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Initial(t *testing.T) {
	p := NewProgressTracker()

	stats := p.Stats()

	assert.Equal(t, StageEnumerating, stats.Stage)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Progress)
	assert.Zero(t, stats.ETA)
}

func TestProgressTracker_UpdateAndProgress(t *testing.T) {
	// Given: a searching stage with 4 projects
	p := NewProgressTracker()
	p.SetStage(StageSearching, 4)

	// When: one project finishes
	p.Update(1, 4)

	// Then: progress is a quarter
	stats := p.Stats()
	assert.Equal(t, 1, stats.Current)
	assert.InDelta(t, 0.25, stats.Progress, 0.001)
}

func TestProgressTracker_ProgressCapped(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageSearching, 2)

	p.Update(5, 0)

	assert.Equal(t, 1.0, p.Stats().Progress)
	assert.Zero(t, p.Stats().ETA)
}

func TestProgressTracker_ETAPositiveMidway(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageSearching, 10)
	time.Sleep(20 * time.Millisecond)

	p.Update(5, 10)

	assert.Greater(t, p.Stats().ETA, time.Duration(0))
}

func TestProgressTracker_Failures(t *testing.T) {
	// Given: two failures
	p := NewProgressTracker()
	p.AddFailure(ErrorEvent{Project: "g/a"})
	p.AddFailure(ErrorEvent{Project: "g/b"})

	// Then: the count and the last one are reported
	stats := p.Stats()
	assert.Equal(t, 2, stats.FailCount)
	assert.Equal(t, "g/b", stats.LastFailure)
	assert.Len(t, p.Failures(), 2)
}
