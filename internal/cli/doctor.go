package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/classfile"
	"github.com/jvmtools/svcgen/internal/classpath"
	"github.com/jvmtools/svcgen/internal/resolve"
	"github.com/jvmtools/svcgen/internal/scan"
)

var doctorOpts projectOptions

func init() {
	doctorOpts.register(doctorCmd)
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Inspect the classpath and service types of a project",
	Long: `Run diagnostic checks on the project inputs: for every classpath entry print its
kind, locator, whether it exists and how many classes (directories) or entries
(archives) it holds, then check that each service type resolves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := doctorOpts.load(cmd, logger)
		if err != nil {
			return err
		}
		problems, err := runDoctor(cmd.OutOrStdout(), p)
		if err != nil {
			return err
		}
		if problems > 0 {
			return fmt.Errorf("doctor found %d problem(s)", problems)
		}
		return nil
	},
}

// runDoctor prints the checks for p and returns the number of failed ones.
// Missing entries are legal on a classpath and only count as a warning.
func runDoctor(w io.Writer, p *project) (int, error) {
	req := p.Request
	runtime := checkRuntime(w, req.JavaHome)
	cp, err := classpath.Assemble(req.SearchPath(),
		classpath.WithRuntime(runtime...),
		classpath.WithArchiveExtensions(req.ArchiveExtensions...),
		classpath.WithMaxOpenArchives(req.MaxOpenArchives),
	)
	if err != nil {
		return 0, err
	}
	defer cp.Close()

	problems := 0
	var entries []classpath.Entry
	for _, e := range cp.Entries() {
		if !e.Runtime {
			entries = append(entries, e)
		}
	}
	fmt.Fprintf(w, "Classpath check (%d entries):\n", len(entries))
	for _, e := range entries {
		if !checkEntry(w, cp, e) {
			problems++
		}
	}

	var opts []resolve.Option
	if req.PlatformPackages != nil {
		opts = append(opts, resolve.WithPlatformPackages(req.PlatformPackages...))
	}
	rctx := resolve.NewContext(cp, opts...)

	fmt.Fprintln(w, "Service check:")
	for _, name := range req.Services {
		r := rctx.Resolve(name)
		switch {
		case r.Outcome != resolve.Found:
			problems++
			fmt.Fprintf(w, "  [FAIL] %s: %s (%v)\n", name, r.Outcome, r.Err)
		case r.Type.Platform:
			fmt.Fprintf(w, "  [ OK ] %s: platform type\n", name)
		default:
			fmt.Fprintf(w, "  [ OK ] %s: found in %s (Java %s, %s)\n", name, r.Type.Origin.Locator,
				classfile.JavaRelease(r.Type.MajorVersion), r.Type.Modifiers)
		}
	}
	return problems, nil
}

// checkRuntime prints where platform types come from and returns the
// runtime entries to search. A missing JDK is not a problem: platform types
// then resolve as stubs.
func checkRuntime(w io.Writer, javaHome string) []classpath.Entry {
	fmt.Fprintln(w, "Java runtime:")
	if javaHome == "" {
		fmt.Fprintln(w, "  [MISS] no JDK configured; platform types resolve as stubs (set JAVA_HOME or --java-home)")
		return nil
	}
	entries, err := classpath.FindRuntime(javaHome)
	if err != nil {
		fmt.Fprintf(w, "  [MISS] %v; platform types resolve as stubs\n", err)
		return nil
	}
	fmt.Fprintf(w, "  [ OK ] %s (%d class archive(s))\n", javaHome, len(entries))
	return entries
}

// checkEntry prints one classpath entry and reports whether it is usable.
func checkEntry(w io.Writer, cp *classpath.Classpath, e classpath.Entry) bool {
	info, err := os.Stat(e.Path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "  [MISS] %-9s %s does not exist\n", e.Kind, e.Locator)
		return true
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %-9s %s: %v\n", e.Kind, e.Locator, err)
		return false
	}

	switch e.Kind {
	case classpath.KindArchive:
		n, err := cp.ArchiveEntries(e)
		if err != nil {
			fmt.Fprintf(w, "  [FAIL] %-9s %s unreadable: %v\n", e.Kind, e.Locator, err)
			return false
		}
		fmt.Fprintf(w, "  [ OK ] %-9s %s (%d entries)\n", e.Kind, e.Locator, n)
	default:
		if !info.IsDir() {
			fmt.Fprintf(w, "  [FAIL] %-9s %s is not a directory\n", e.Kind, e.Locator)
			return false
		}
		n := 0
		if err := scan.CompiledUnitsFunc(e.Path, func(string) { n++ }); err != nil {
			fmt.Fprintf(w, "  [FAIL] %-9s %s: %v\n", e.Kind, e.Locator, err)
			return false
		}
		fmt.Fprintf(w, "  [ OK ] %-9s %s (%d classes)\n", e.Kind, e.Locator, n)
	}
	return true
}
