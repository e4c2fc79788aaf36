package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
	"github.com/shkmv/gitlab-search-cli/internal/progress"
)

// DefaultConcurrency is the number of searches in flight at once.
const DefaultConcurrency = 8

// Searcher runs a blob search in one project.
type Searcher interface {
	SearchBlobs(ctx context.Context, projectID int64, query string) ([]gitlab.Blob, error)
}

// Options configures a Dispatcher or Orchestrator.
type Options struct {
	// Concurrency bounds in-flight searches (default: DefaultConcurrency).
	Concurrency int

	// Retry is the per-project retry policy (default: errors.DefaultRetryConfig).
	Retry *gserrors.RetryConfig

	// Progress receives Discovered, Completed and ProjectFailed events.
	// It must be safe for concurrent use; wrap renderers in a progress.Pump.
	Progress progress.Sink

	// Logger (default: slog.Default).
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Retry == nil {
		cfg := gserrors.DefaultRetryConfig()
		o.Retry = &cfg
	}
	o.Progress = progress.OrNop(o.Progress)
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Dispatcher searches a list of projects on a fixed-size worker pool.
type Dispatcher struct {
	searcher Searcher
	opts     Options
}

// NewDispatcher creates a dispatcher over s.
func NewDispatcher(s Searcher, opts Options) *Dispatcher {
	return &Dispatcher{searcher: s, opts: opts.withDefaults()}
}

type job struct {
	index   int
	project gitlab.Project
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// Dispatch searches every project and returns one Outcome per project, in
// the order of projects regardless of completion order.
//
// A project whose search fails after retries yields a failed Outcome; it does
// not stop the others. If ctx is cancelled, no new searches start and
// Dispatch returns ctx.Err() with no outcomes unless every project had
// already finished.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, projects []gitlab.Project) ([]Outcome, error) {
	total := len(projects)
	outcomes := make([]Outcome, total)
	if total == 0 {
		return outcomes, nil
	}

	workers := min(d.opts.Concurrency, total)
	jobs := make(chan job)
	results := make(chan indexedOutcome, workers)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i, p := range projects {
			select {
			case jobs <- job{index: i, project: p}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range jobs {
				o := d.searchProject(gctx, query, j.project)
				if gctx.Err() != nil {
					// Abandoned: not counted as completed or failed.
					return gctx.Err()
				}

				n := int(done.Add(1))
				d.opts.Progress.Emit(progress.Event{Kind: progress.Completed, Done: n, Total: total})
				if o.Err != nil {
					d.opts.Progress.Emit(progress.Event{
						Kind:      progress.ProjectFailed,
						ProjectID: o.Project.ID,
						Project:   o.Project.PathWithNamespace,
						Error:     describe(o.Err),
					})
				}
				results <- indexedOutcome{index: j.index, outcome: o}
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	collected := 0
	for r := range results {
		outcomes[r.index] = r.outcome
		collected++
	}
	err := <-waitErr

	if collected == total {
		return outcomes, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		err = gserrors.InternalError("dispatch finished with missing outcomes", nil)
	}
	return nil, err
}

// searchProject runs one project's search under the retry policy.
func (d *Dispatcher) searchProject(ctx context.Context, query string, p gitlab.Project) Outcome {
	start := time.Now()
	retry := *d.opts.Retry
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		d.opts.Logger.Warn("retry_scheduled",
			append([]any{
				slog.String("project", p.PathWithNamespace),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			}, gserrors.FormatForLog(err)...)...)
	}

	blobs, err := gserrors.RetryWithResult(ctx, retry, func() ([]gitlab.Blob, error) {
		return d.searcher.SearchBlobs(ctx, p.ID, query)
	})
	if err != nil {
		if ctx.Err() == nil {
			d.opts.Logger.Warn("project_search_failed",
				append([]any{
					slog.String("project", p.PathWithNamespace),
					slog.Duration("duration", time.Since(start)),
				}, gserrors.FormatForLog(err)...)...)
		}
		return Outcome{Project: p, Err: err}
	}

	hits := make([]Hit, 0, len(blobs))
	for _, b := range blobs {
		hits = append(hits, Hit{
			Project:    p.PathWithNamespace,
			ProjectID:  p.ID,
			FilePath:   b.FilePath(),
			Ref:        b.Ref,
			LineNumber: b.StartLine,
			Snippet:    b.Data,
		})
	}

	if len(blobs) >= gitlab.SearchPageSize {
		d.opts.Logger.Info("project_results_truncated",
			slog.String("project", p.PathWithNamespace),
			slog.Int("limit", gitlab.SearchPageSize))
	}

	d.opts.Logger.Debug("project_searched",
		slog.String("project", p.PathWithNamespace),
		slog.Int("hits", len(hits)),
		slog.Duration("duration", time.Since(start)))

	return Outcome{Project: p, Hits: hits, Truncated: len(blobs) >= gitlab.SearchPageSize}
}

// describe returns the user-facing message of err.
func describe(err error) string {
	if e, ok := gserrors.As(err); ok {
		return e.Message
	}
	return err.Error()
}
