package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/logging"
	"github.com/shkmv/gitlab-search-cli/internal/output"
)

type logsOptions struct {
	lines   int
	level   string
	pattern string
	runID   string
	file    string
	noColor bool
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the tail of the gitlab-search log file
(~/.gitlab-search/logs/gitlab-search.log).

Every invocation tags its lines with a run_id; use --run with a prefix of it
to follow a single search.`,
		Example: `  gitlab-search logs
  gitlab-search logs -n 200 --level warn
  gitlab-search logs --grep project_search_failed
  gitlab-search logs --run 3f2a`,
		Args: cobra.NoArgs,
		// Reading the log must not create it or add its own entries.
		Annotations: map[string]string{noLogFile: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of entries to show (0 = all)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVarP(&opts.pattern, "grep", "g", "", "Only lines matching this regular expression")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Only entries whose run_id starts with this prefix")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file (default: ~/.gitlab-search/logs/gitlab-search.log)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	viewerCfg := logging.ViewerConfig{
		Level:   opts.level,
		RunID:   opts.runID,
		NoColor: !output.ColorEnabled(cmd.OutOrStdout(), opts.noColor),
	}
	if opts.pattern != "" {
		re, err := regexp.Compile(opts.pattern)
		if err != nil {
			return gserrors.ValidationError(fmt.Sprintf("invalid --grep pattern: %v", err), err)
		}
		viewerCfg.Pattern = re
	}

	viewer := logging.NewViewer(viewerCfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}
