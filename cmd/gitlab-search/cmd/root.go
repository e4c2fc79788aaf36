// Package cmd provides the CLI commands for gitlab-search.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shkmv/gitlab-search-cli/internal/config"
	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/logging"
	"github.com/shkmv/gitlab-search-cli/pkg/version"
)

// Global flags
var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the gitlab-search CLI.
func NewRootCmd() *cobra.Command {
	configPath = ""
	debugMode = false

	cmd := &cobra.Command{
		Use:   "gitlab-search",
		Short: "Search code across every project of a GitLab instance",
		Long: `gitlab-search runs a blob search over all projects visible to your
token on a GitLab instance, or over a single project, and prints every
matching snippet with its file and line.

Register an instance once with 'gitlab-search config add', then search:

  gitlab-search search -q "func main" --all-projects`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("gitlab-search version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/gitlab-search/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (also mirrored to stderr)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		stopLogging()
		return nil
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newProjectsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// noLogFile marks commands that must not create or append to the log file.
const noLogFile = "no-log-file"

// startLogging sends slog output to the rotating log file. The level comes
// from --debug, else from the config file and GITLAB_SEARCH_LOG_LEVEL.
func startLogging(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cmd.Annotations[noLogFile] == "true" {
		logCfg.FilePath = ""
	}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
		logCfg.Stderr = cmd.ErrOrStderr()
	} else if cfg, err := config.Load(configPath); err == nil {
		logCfg.Level = cfg.LogLevel
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Unwritable log dir: continue without file logging.
		logCfg.FilePath = ""
		if logger, cleanup, err = logging.Setup(logCfg); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Short()))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command with SIGINT/SIGTERM cancelling the context
// and prints any error to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer stopLogging()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}
	return err
}

func printError(err error) {
	if errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(os.Stderr, "Cancelled.")
		return
	}
	if _, ok := gserrors.As(err); ok {
		_, _ = fmt.Fprint(os.Stderr, gserrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// ExitCode maps an error to the process exit status:
// 0 ok, 130 interrupted, 2 invalid usage or config, 1 anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	}
	switch gserrors.GetCategory(err) {
	case gserrors.CategoryConfig, gserrors.CategoryValidation:
		return 2
	}
	return 1
}
