package ui

import (
	"sync"
	"time"
)

// ProgressTracker holds the state the TUI draws from.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	startTime  time.Time
	stageStart time.Time
	failures   []ErrorEvent

	lastETA time.Duration
}

// ProgressStats contains a snapshot of current progress.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	Rate        float64 // projects per second
	FailCount   int
	LastFailure string
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:      StageEnumerating,
		startTime:  now,
		stageStart: now,
	}
}

// SetStage transitions to a new stage.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.stageStart = time.Now()
	p.lastETA = 0
}

// Update records the number of finished projects.
func (p *ProgressTracker) Update(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total > 0 {
		p.total = total
	}
	p.current = current
}

// AddFailure records a failed project.
func (p *ProgressTracker) AddFailure(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures = append(p.failures, event)
}

// Elapsed returns time since tracker creation.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.startTime)
}

// Stats returns current statistics snapshot.
// Uses write lock because calculateETA updates the smoothing state.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := ProgressStats{
		Stage:     p.stage,
		Current:   p.current,
		Total:     p.total,
		ETA:       p.calculateETA(),
		FailCount: len(p.failures),
	}
	if p.total > 0 {
		stats.Progress = float64(p.current) / float64(p.total)
		if stats.Progress > 1.0 {
			stats.Progress = 1.0
		}
	}
	if elapsed := time.Since(p.stageStart).Seconds(); elapsed > 0 {
		stats.Rate = float64(p.current) / elapsed
	}
	if n := len(p.failures); n > 0 {
		stats.LastFailure = p.failures[n-1].Project
	}
	return stats
}

// etaSmoothingFactor is the weight of the newest ETA sample.
const etaSmoothingFactor = 0.3

// calculateETA must be called with the lock held.
func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	progress := float64(p.current) / float64(p.total)
	if progress >= 1.0 {
		return 0
	}

	raw := time.Duration(float64(elapsed)/progress) - elapsed
	if raw < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}

	smoothed := time.Duration(etaSmoothingFactor*float64(raw) + (1-etaSmoothingFactor)*float64(p.lastETA))
	p.lastETA = smoothed
	return smoothed
}

// Failures returns the recorded failures.
func (p *ProgressTracker) Failures() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.failures))
	copy(result, p.failures)
	return result
}
