package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shkmv/gitlab-search-cli/internal/config"
	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/output"
	"github.com/shkmv/gitlab-search-cli/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		instance   string
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and instance connectivity",
		Long: `Run diagnostics to ensure gitlab-search can operate correctly.

Checks:
  - Config file exists and is private (mode 0600)
  - Log directory is writable
  - Each instance answers GET /api/v4/version
  - Each token is accepted by GET /api/v4/user`,
		Example: `  gitlab-search doctor
  gitlab-search doctor -i work --verbose
  gitlab-search doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, instance, verbose, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Only check this instance")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorReport is the JSON output of doctor.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func runDoctor(ctx context.Context, cmd *cobra.Command, instance string, verbose, jsonOutput bool) error {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	instances := cfg.Instances
	if instance != "" {
		inst, err := cfg.Registry().Resolve(instance)
		if err != nil {
			return err
		}
		instances = []config.Instance{inst}
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithProber(func(inst config.Instance) (preflight.Prober, error) {
			client, err := newClient(cfg, inst, 1)
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
	)

	results := checker.RunAll(ctx, path, instances)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if jsonOutput {
		if err := output.WriteJSON(cmd.OutOrStdout(), doctorReport{
			Status: checker.SummaryStatus(results),
			Checks: results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return gserrors.New(gserrors.ErrCodeInternal, "doctor found problems", nil)
	}
	return nil
}
