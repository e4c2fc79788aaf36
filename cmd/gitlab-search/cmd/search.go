package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/output"
	"github.com/shkmv/gitlab-search-cli/internal/progress"
	"github.com/shkmv/gitlab-search-cli/internal/search"
	"github.com/shkmv/gitlab-search-cli/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	query       string
	instance    string
	project     string
	allProjects bool
	archived    bool
	format      string // "text", "json"
	noProgress  bool
	noColor     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search code in one project or across all projects",
		Long: `Search file contents with GitLab's blob search.

Use --project to search one project (numeric id or group/path), or
--all-projects to search every project your token is a member of.
Archived projects are skipped unless --archived is given.

Projects that fail after retries are listed after the results; they never
abort the search.`,
		Example: `  gitlab-search search -q "func main" --all-projects
  gitlab-search search -q TODO -p group/app
  gitlab-search search -q password -a -i work --format json`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.query == "" {
				opts.query = strings.Join(args, " ")
			}
			return runSearch(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Text to search for")
	cmd.Flags().StringVarP(&opts.instance, "instance", "i", "", "Instance name (default: the default instance)")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project id or path_with_namespace")
	cmd.Flags().BoolVarP(&opts.allProjects, "all-projects", "a", false, "Search every project")
	cmd.Flags().BoolVar(&opts.archived, "archived", false, "Include archived projects")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")

	return cmd
}

func (o searchOptions) validate() error {
	if strings.TrimSpace(o.query) == "" {
		return gserrors.ValidationError("search query is empty", nil).
			WithSuggestion("Pass the text with --query or as an argument")
	}
	if o.project == "" && !o.allProjects {
		return gserrors.ValidationError("no search scope given", nil).
			WithSuggestion("Specify a project with --project or use --all-projects")
	}
	if o.project != "" && o.allProjects {
		return gserrors.ValidationError("--project and --all-projects are mutually exclusive", nil)
	}
	if o.format != "text" && o.format != "json" {
		return gserrors.ValidationError(fmt.Sprintf("unknown format %q", o.format), nil).
			WithSuggestion("Use --format text or --format json")
	}
	return nil
}

func runSearch(ctx context.Context, cmd *cobra.Command, opts searchOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, inst, err := loadInstance(opts.instance)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, inst, search.DefaultConcurrency)
	if err != nil {
		return err
	}

	logger := slog.Default().With(slog.String("instance", inst.Name))
	logger.Info("search_requested",
		slog.String("query", opts.query),
		slog.String("project", opts.project),
		slog.Bool("all_projects", opts.allProjects),
		slog.Bool("archived", opts.archived))

	var sink progress.Sink = progress.Nop()
	var renderer ui.Renderer
	var pump *progress.Pump
	if !opts.noProgress {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
			ui.WithNoColor(opts.noColor),
			ui.WithInstance(inst.Name),
			ui.WithQuery(opts.query),
		))
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		pump = progress.NewPump(ui.Handler(renderer), 0)
		sink = pump
	}

	orch := search.New(client, search.Options{
		Progress: sink,
		Logger:   logger,
	})

	start := time.Now()
	var res *search.Result
	if opts.project != "" {
		res, err = orch.SearchOne(ctx, opts.query, opts.project)
	} else {
		res, err = orch.SearchAll(ctx, opts.query, opts.archived)
	}
	elapsed := time.Since(start)

	if pump != nil {
		pump.Close()
	}
	if renderer != nil {
		if err == nil {
			renderer.Complete(ui.CompletionStats{
				Projects: res.Projects,
				Hits:     len(res.Hits),
				Failed:   len(res.Failed),
				Duration: elapsed,
			})
		}
		_ = renderer.Stop()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		if err := output.WriteJSON(out, output.NewSearchReport(inst.Name, opts.query, res, elapsed)); err != nil {
			return err
		}
	} else {
		output.NewHitPrinter(out, output.ColorEnabled(out, opts.noColor)).Print(res)
	}

	if res.Projects > 0 && res.Succeeded() == 0 {
		return gserrors.New(gserrors.ErrCodeSearchFailed,
			fmt.Sprintf("all %d projects failed to search", res.Projects), nil).
			WithSuggestion("Run 'gitlab-search doctor' to check the instance and token")
	}
	return nil
}
