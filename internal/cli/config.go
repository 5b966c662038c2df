package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change user settings",
	Long: fmt.Sprintf(`Settings live in %s and may be overridden with
SVCGEN_<KEY> environment variables.

Keys: %s`, config.FilePath(), strings.Join(config.Keys, ", ")),
}

func init() {
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show every setting and its effective value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listSettings(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Print one setting",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !slices.Contains(config.Keys, args[0]) {
					return fmt.Errorf("unknown config key %q (known keys: %s)", args[0], strings.Join(config.Keys, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.Get(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Store one setting",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.Keys,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Set(args[0], args[1]); err != nil {
					return err
				}
				logger.Debug("saved setting", "key", args[0], "file", config.FilePath())
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			},
		},
	)
	rootCmd.AddCommand(configCmd)
}

func listSettings(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, key := range config.Keys {
		value := config.Get(key)
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, value)
	}
	return tw.Flush()
}
