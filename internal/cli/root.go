package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/config"
	"github.com/jvmtools/svcgen/internal/release"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	logLevelFlag string
	verboseFlag  bool

	// logger is configured by the root command before any subcommand runs.
	logger = log.New(io.Discard)
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Shorthand for --log-level=debug")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers the implementations of JVM service types among compiled
classes and writes the META-INF/services provider files that ServiceLoader reads.

Inputs come from a project manifest (` + branding.ManifestFile() + `) and can be overridden
with flags on each command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		l, err := newLogger(os.Stderr, resolveLogLevel())
		if err != nil {
			return err
		}
		logger = l

		// Prints from the saved notice; refreshing happens in the background.
		if cmd.Name() != "version" && config.UpdateCheck() {
			release.NewChecker(buildVersion).Banner(os.Stderr, config.Dir())
		}
		return nil
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// resolveLogLevel picks the level from flags first, then config.
func resolveLogLevel() string {
	if verboseFlag {
		return "debug"
	}
	if logLevelFlag != "" {
		return logLevelFlag
	}
	return config.LogLevel()
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: branding.CLIName(),
		Level:  lvl,
	}), nil
}
