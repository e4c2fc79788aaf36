package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shkmv/gitlab-search-cli/internal/output"
	"github.com/shkmv/gitlab-search-cli/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON, short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit, build date, Go version and platform of this binary.`,
		Example: `  gitlab-search version
  gitlab-search version --short`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case short:
				_, err := fmt.Fprintln(out, version.Short())
				return err
			case asJSON:
				return output.WriteJSON(out, version.GetInfo())
			default:
				_, err := fmt.Fprintln(out, version.String())
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version (wins over --json)")

	return cmd
}
