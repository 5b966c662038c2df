package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/scan"
)

var scanJSON bool

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List the compiled classes in a directory",
	Long: `List the binary names of all compiled units below a classes directory, sorted.
Without an argument the classes directory of the nearest manifest is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := scanDir(args)
		if err != nil {
			return err
		}
		names, err := scan.Sorted(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		if names == nil {
			if _, statErr := os.Stat(dir); statErr != nil {
				return fmt.Errorf("classes directory %s does not exist", dir)
			}
			names = []string{}
		}

		if scanJSON {
			return printJSON(cmd.OutOrStdout(), names)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func scanDir(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	var opts projectOptions
	m, err := opts.findManifest()
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", fmt.Errorf("no directory given and no manifest found")
	}
	return m.ClassesPath(), nil
}
