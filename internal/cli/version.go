package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/config"
	"github.com/jvmtools/svcgen/internal/release"
	"github.com/jvmtools/svcgen/internal/version"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	var short, asJSON, check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case short:
				fmt.Fprintln(out, buildVersion)
			case asJSON:
				return printJSON(out, version.Info{Version: buildVersion, Commit: buildCommit, Date: buildDate})
			default:
				fmt.Fprintf(out, "%s %s\n  commit: %s\n  built:  %s\n", branding.CLIName(), buildVersion, buildCommit, buildDate)
			}
			if check {
				return runVersionCheck(cmd, release.NewChecker(buildVersion))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "ask GitHub whether a newer release exists")
	return cmd
}

func runVersionCheck(cmd *cobra.Command, c *release.Checker) error {
	if version.IsDev(c.Current()) {
		fmt.Fprintln(cmd.OutOrStdout(), "Development build; skipping release check.")
		return nil
	}
	notice, err := c.Refresh(cmd.Context(), config.Dir())
	if notice == nil {
		return fmt.Errorf("checking for updates: %w", err)
	}
	if err != nil {
		logger.Warn("could not save release notice", "err", err)
	}
	if notice.Newer {
		release.PrintBanner(cmd.OutOrStdout(), notice.Current, notice.Latest)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date (latest release %s).\n", branding.CLIName(), notice.Latest)
	return nil
}
