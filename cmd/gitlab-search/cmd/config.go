package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shkmv/gitlab-search-cli/configs"
	"github.com/shkmv/gitlab-search-cli/internal/config"
	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/output"
)

// verifyTimeout bounds the connectivity check run by config add.
const verifyTimeout = 10 * time.Second

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage GitLab instances and settings",
		Long: `Manage the configuration file that holds your GitLab instances.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. Config file ($XDG_CONFIG_HOME/gitlab-search/config.yaml)
  3. Environment variables (GITLAB_SEARCH_*)

The file contains access tokens and is always written with mode 0600.
Every write keeps a timestamped backup; see 'config restore'.`,
		Example: `  gitlab-search config add --name work --url https://gitlab.example.com --token glpat-...
  gitlab-search config list
  gitlab-search config default work
  gitlab-search config show`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigAddCmd())
	cmd.AddCommand(newConfigRemoveCmd())
	cmd.AddCommand(newConfigDefaultCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.ResolvePath(configPath)

	if config.Exists(path) && !force {
		out.Warning("Configuration already exists")
		out.Statusf("", "Location: %s", path)
		out.Statusf("", "Use --force to overwrite it (a backup is kept)")
		return nil
	}

	if err := config.WriteFileLocked(path, []byte(configs.UserConfigTemplate)); err != nil {
		return err
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	out.Newline()
	out.Status("", "Next: gitlab-search config add --name NAME --url URL --token TOKEN")
	return nil
}

func newConfigAddCmd() *cobra.Command {
	var (
		inst       config.Instance
		skipVerify bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a GitLab instance",
		Long: `Add a GitLab instance, or replace the one with the same name.

After saving, the instance is probed with GET /api/v4/version. A failed probe
is reported as a warning; the instance stays registered.`,
		Example: `  gitlab-search config add --name work --url https://gitlab.example.com --token glpat-xxxx --default`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigAdd(cmd.Context(), cmd, inst, skipVerify)
		},
	}

	cmd.Flags().StringVar(&inst.Name, "name", "", "Instance name")
	cmd.Flags().StringVar(&inst.URL, "url", "", "Instance URL, e.g. https://gitlab.example.com")
	cmd.Flags().StringVar(&inst.Token, "token", "", "Personal access token (read_api scope)")
	cmd.Flags().BoolVar(&inst.Default, "default", false, "Make this the default instance")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Do not probe the instance after saving")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runConfigAdd(ctx context.Context, cmd *cobra.Command, inst config.Instance, skipVerify bool) error {
	out := output.NewWithColor(cmd.OutOrStdout(), output.ColorEnabled(cmd.OutOrStdout(), false))
	path := config.ResolvePath(configPath)

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	replaced, err := cfg.UpsertInstance(inst)
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if replaced {
		out.Successf("Updated GitLab instance: %s", out.Highlight(inst.Name))
	} else {
		out.Successf("Added GitLab instance: %s", out.Highlight(inst.Name))
	}

	if skipVerify {
		return nil
	}

	saved, err := cfg.Registry().Resolve(inst.Name)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, saved, 1)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	v, err := client.Version(ctx)
	if err != nil {
		msg := err.Error()
		if e, ok := gserrors.As(err); ok {
			msg = e.Message
		}
		out.Warningf("Failed to connect to %s: %s", inst.Name, msg)
		return nil
	}
	out.Successf("Connected to %s (GitLab %s)", out.Highlight(inst.Name), v.Version)
	return nil
}

func newConfigRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a GitLab instance",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, func(cfg *config.Config) error {
				return cfg.RemoveInstance(args[0])
			}, "Removed GitLab instance: "+args[0])
		},
	}
}

func newConfigDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default NAME",
		Short: "Set the default GitLab instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, func(cfg *config.Config) error {
				return cfg.SetDefault(args[0])
			}, "Default instance: "+args[0])
		},
	}
}

// updateConfig applies mutate to the file (without env overrides) and saves it.
func updateConfig(cmd *cobra.Command, mutate func(*config.Config) error, done string) error {
	path := config.ResolvePath(configPath)
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := mutate(cfg); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Success(done)
	return nil
}

func newConfigListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured GitLab instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			if jsonOutput {
				return output.WriteJSON(cmd.OutOrStdout(), redacted.Instances)
			}

			out := output.New(cmd.OutOrStdout())
			if len(redacted.Instances) == 0 {
				out.Status("", "No instances configured")
				return nil
			}
			t := output.NewTable(cmd.OutOrStdout(), "name", "url", "default", "token")
			for _, inst := range redacted.Instances {
				def := ""
				if inst.Default {
					def = "*"
				}
				t.AddRow(inst.Name, inst.URL, def, inst.Token)
			}
			return t.Render()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (tokens masked)",
		Long: `Show the configuration with every token masked.

Sources:
  merged    defaults + file + environment (default)
  file      the config file only
  defaults  built-in defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, file, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var (
		cfg *config.Config
		err error
	)
	switch source {
	case "merged":
		cfg, err = config.Load(configPath)
	case "file":
		cfg, err = config.LoadFile(configPath)
	case "defaults":
		cfg = config.NewConfig()
	default:
		return gserrors.ValidationError(fmt.Sprintf("invalid source %q", source), nil).
			WithSuggestion("Use --source merged, file, or defaults")
	}
	if err != nil {
		return err
	}

	redacted := cfg.Redacted()
	if jsonOutput {
		return output.WriteJSON(cmd.OutOrStdout(), redacted)
	}
	data, err := redacted.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.ResolvePath(configPath))
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [BACKUP]",
		Short: "Restore the configuration from a backup",
		Long: `Restore the configuration file from one of its backups.

Without an argument the newest backup is used. The current file is itself
backed up before being replaced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup := ""
			if len(args) == 1 {
				backup = args[0]
			}
			return runConfigRestore(cmd, backup, list)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List available backups")

	return cmd
}

func runConfigRestore(cmd *cobra.Command, backup string, list bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.ResolvePath(configPath)

	backups, err := config.ListBackups(path)
	if err != nil {
		return err
	}

	if list {
		if len(backups) == 0 {
			out.Status("", "No backups")
		}
		for _, b := range backups {
			out.Status("", b)
		}
		return nil
	}

	if backup == "" {
		if len(backups) == 0 {
			return gserrors.New(gserrors.ErrCodeFileNotFound, "no backups found for "+path, nil)
		}
		backup = backups[0]
	}

	if err := config.RestoreConfig(path, backup); err != nil {
		return err
	}
	out.Successf("Restored %s from %s", path, backup)
	return nil
}
