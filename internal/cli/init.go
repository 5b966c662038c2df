package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/scaffold"
	"github.com/jvmtools/svcgen/internal/version"
)

var (
	initServices   []string
	initClassesDir string
	initOutputDir  string
	initClasspath  []string
	initForce      bool
)

func init() {
	initCmd.Flags().StringArrayVar(&initServices, "service", nil, "Service type binary name (repeatable)")
	initCmd.Flags().StringVar(&initClassesDir, "classes-dir", "", "Compiled classes directory (default: detected from the build layout)")
	initCmd.Flags().StringVar(&initOutputDir, "output-dir", "", "Directory receiving META-INF/services")
	initCmd.Flags().StringArrayVar(&initClasspath, "classpath", nil, "Classpath directory or archive (repeatable)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing manifest")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter " + branding.ManifestFile(),
	Long: `Write a starter project manifest into dir (default: the current directory).
The classes directory is detected from common Maven, Gradle and IntelliJ
layouts unless --classes-dir is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		data := &scaffold.Data{
			Services:   initServices,
			ClassesDir: initClassesDir,
			OutputDir:  initOutputDir,
			Classpath:  initClasspath,
		}
		if v, err := version.Parse(buildVersion); err == nil && !version.IsDev(buildVersion) {
			data.Requires = ">= " + v.String()
		}

		result, err := scaffold.Generate(dir, data, initForce)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %s (classes in %s)\n", result.Path, data.ClassesDir)
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "Warning: %s\n", w)
		}
		if len(initServices) == 0 {
			fmt.Fprintln(out, "Add your service types under 'services' before running generate.")
		}
		return nil
	},
}
