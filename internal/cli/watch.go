package cli

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/classpath"
	"github.com/jvmtools/svcgen/internal/servicefile"
	"github.com/jvmtools/svcgen/internal/watch"
)

var (
	watchOpts     projectOptions
	watchDebounce time.Duration
)

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate provider files whenever classes change",
	Long: `Generate provider files, then watch the classes directory and the directory
entries of the classpath and regenerate after every burst of class file changes.
Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := watchOpts.load(cmd, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		written := logWritten(logger)
		report, err := generate(p, false, logger, written)
		if err != nil {
			return err
		}
		logger.Info("generated provider files", "changed", report.changed(), "scanned", report.Scanned, "skipped", report.Skipped)

		dirs, err := watchDirs(p)
		if err != nil {
			return err
		}
		w, err := watch.New(watch.Config{
			Dirs:     dirs,
			Debounce: watchDebounce,
			Logger:   logger,
			OnChange: func(ctx context.Context, changed []string) error {
				report, err := generate(p, false, logger, written)
				if err != nil {
					return err
				}
				logger.Info("regenerated provider files", "changed", report.changed(), "scanned", report.Scanned, "skipped", report.Skipped)
				return nil
			},
		})
		if err != nil {
			return err
		}

		logger.Info("watching for class changes", "dirs", w.Roots())
		err = w.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// logWritten returns a notifier that logs each provider file at debug
// level together with the time it was written.
func logWritten(l *log.Logger) servicefile.NotifyFunc {
	return func(path string) {
		l.Debug("provider file written", "path", path, "at", time.Now().Format(time.TimeOnly))
	}
}

// watchDirs returns the directory entries of the search path, classes
// directory first.
func watchDirs(p *project) ([]string, error) {
	cp, err := classpath.Assemble(p.Request.SearchPath(), classpath.WithArchiveExtensions(p.Request.ArchiveExtensions...))
	if err != nil {
		return nil, err
	}
	defer cp.Close()

	var dirs []string
	for _, e := range cp.Entries() {
		if e.Kind == classpath.KindDirectory && !slices.Contains(dirs, e.Path) {
			dirs = append(dirs, e.Path)
		}
	}
	return dirs, nil
}
