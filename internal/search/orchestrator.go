package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
	"github.com/shkmv/gitlab-search-cli/internal/progress"
)

// Client is the subset of *gitlab.Client the orchestrator needs.
type Client interface {
	Searcher
	ListProjects(ctx context.Context) ([]gitlab.Project, error)
	GetProject(ctx context.Context, ref string) (gitlab.Project, error)
}

var _ Client = (*gitlab.Client)(nil)

// Orchestrator is the caller-facing search surface for one instance.
type Orchestrator struct {
	client     Client
	dispatcher *Dispatcher
	opts       Options
}

// New creates an orchestrator over client.
func New(client Client, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		client:     client,
		dispatcher: NewDispatcher(client, opts),
		opts:       opts,
	}
}

// ListProjects enumerates every project visible to the token, dropping
// archived ones unless includeArchived is set. It emits exactly one
// Discovered event once the filtered list is known. Any listing failure is
// fatal.
func (o *Orchestrator) ListProjects(ctx context.Context, includeArchived bool) ([]gitlab.Project, error) {
	start := time.Now()
	all, err := o.client.ListProjects(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, enumerationError(err)
	}

	projects := gitlab.FilterArchived(all, includeArchived)
	o.opts.Progress.Emit(progress.Event{Kind: progress.Discovered, Total: len(projects)})

	o.opts.Logger.Info("projects_enumerated",
		slog.Int("listed", len(all)),
		slog.Int("selected", len(projects)),
		slog.Bool("include_archived", includeArchived),
		slog.Duration("duration", time.Since(start)))

	return projects, nil
}

// SearchAll searches every enumerated project. It fails only when
// enumeration fails or ctx is cancelled; per-project failures are reported
// in Result.Failed. An instance with no projects yields an empty Result.
func (o *Orchestrator) SearchAll(ctx context.Context, query string, includeArchived bool) (*Result, error) {
	projects, err := o.ListProjects(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, query, projects)
}

// SearchOne searches a single project identified by numeric id or
// path_with_namespace.
func (o *Orchestrator) SearchOne(ctx context.Context, query, projectRef string) (*Result, error) {
	p, err := o.client.GetProject(ctx, projectRef)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return o.run(ctx, query, []gitlab.Project{p})
}

func (o *Orchestrator) run(ctx context.Context, query string, projects []gitlab.Project) (*Result, error) {
	start := time.Now()
	o.opts.Logger.Info("search_started",
		slog.Int("projects", len(projects)),
		slog.Int("concurrency", o.opts.Concurrency))

	outcomes, err := o.dispatcher.Dispatch(ctx, query, projects)
	if err != nil {
		o.opts.Logger.Warn("search_aborted", slog.String("error", err.Error()))
		return nil, err
	}

	res := Aggregate(outcomes)
	o.opts.Logger.Info("search_completed",
		slog.Int("projects", res.Projects),
		slog.Int("hits", len(res.Hits)),
		slog.Int("failed", len(res.Failed)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// enumerationError marks a listing failure as fatal, keeping the cause's hint.
func enumerationError(err error) error {
	e := gserrors.New(gserrors.ErrCodeEnumerationFailed,
		fmt.Sprintf("could not list projects: %s", describe(err)), err)
	if inner, ok := gserrors.As(err); ok && inner.Suggestion != "" {
		e = e.WithSuggestion(inner.Suggestion)
	}
	return e
}
