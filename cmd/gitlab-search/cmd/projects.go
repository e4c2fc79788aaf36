package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/output"
	"github.com/shkmv/gitlab-search-cli/internal/search"
)

func newProjectsCmd() *cobra.Command {
	var (
		instance string
		archived bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects a search would cover",
		Example: `  gitlab-search projects
  gitlab-search projects -i work --archived --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProjects(cmd.Context(), cmd, instance, archived, format)
		},
	}

	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Instance name (default: the default instance)")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived projects")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json")

	return cmd
}

func runProjects(ctx context.Context, cmd *cobra.Command, instance string, archived bool, format string) error {
	if format != "table" && format != "json" {
		return gserrors.ValidationError(fmt.Sprintf("unknown format %q", format), nil).
			WithSuggestion("Use --format table or --format json")
	}

	cfg, inst, err := loadInstance(instance)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, inst, 0)
	if err != nil {
		return err
	}

	orch := search.New(client, search.Options{
		Logger: slog.Default().With(slog.String("instance", inst.Name)),
	})
	projects, err := orch.ListProjects(ctx, archived)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return output.WriteJSON(out, projects)
	}

	w := output.NewWithColor(out, output.ColorEnabled(out, false))
	w.Statusf("", "%d projects on %s", len(projects), w.Highlight(inst.Name))
	if len(projects) == 0 {
		return nil
	}
	w.Newline()
	return output.RenderProjects(out, projects)
}
