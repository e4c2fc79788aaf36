package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	cfg     Config
	stage   Stage
	errors  []ErrorEvent
	lastPct int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		cfg:     cfg,
		lastPct: -1,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Instance != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", StageEnumerating.Icon(), r.cfg.Instance)
	}
	return nil
}

// UpdateProgress implements Renderer.
// Counts are printed at most once per 10% step so large runs stay readable.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	if event.Message != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
		return
	}
	if event.Total <= 0 {
		return
	}

	pct := event.Current * 100 / event.Total
	step := pct / 10 * 10
	if event.Current < event.Total && step == r.lastPct {
		return
	}
	r.lastPct = step
	_, _ = fmt.Fprintf(r.out, "[%s] %d/%d\n", event.Stage.Icon(), event.Current, event.Total)
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Project != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Project, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = StageComplete
	_, _ = fmt.Fprintf(r.out, "[%s] %s in %s, %s",
		StageComplete.Icon(),
		pluralize(stats.Projects, "project"),
		stats.Duration.Round(100*time.Millisecond),
		pluralize(stats.Hits, "hit"))
	if stats.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d failed)", stats.Failed)
	}
	_, _ = fmt.Fprintln(r.out)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
