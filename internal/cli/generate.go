package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/servicefile"
)

// errOutOfDate is returned by check when provider files would change.
var errOutOfDate = errors.New("provider files are out of date")

var (
	generateOpts   projectOptions
	generateDryRun bool
	generateJSON   bool

	checkOpts projectOptions
	checkJSON bool
)

func init() {
	generateOpts.register(generateCmd)
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Report what would be written without writing")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(generateCmd)

	checkOpts.register(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(checkCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write META-INF/services provider files",
	Long: `Discover the implementations of each service type among the compiled classes
and write one provider file per service below <output-dir>/META-INF/services.

Files whose content is already current are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := generateOpts.load(cmd, logger)
		if err != nil {
			return err
		}
		report, err := generate(p, generateDryRun, logger, nil)
		if err != nil {
			return err
		}
		if generateJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify provider files are up to date",
	Long: `Run discovery like generate but never write. Exits non-zero when any provider
file would be created or changed, which makes it suitable as a CI guard.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := checkOpts.load(cmd, logger)
		if err != nil {
			return err
		}
		report, err := generate(p, true, logger, nil)
		if err != nil {
			return err
		}
		if checkJSON {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		} else if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if n := report.changed(); n > 0 {
			return fmt.Errorf("%w: %d file(s) differ; run '%s generate'", errOutOfDate, n, branding.CLIName())
		}
		return nil
	},
}

// runReport is the outcome of one generate or check run.
type runReport struct {
	DryRun      bool               `json:"dryRun"`
	Files       []servicefile.File `json:"files"`
	Diagnostics []diagnosticView   `json:"diagnostics"`
	Scanned     int                `json:"scanned"`
	Skipped     int                `json:"skipped"`
}

func (r *runReport) changed() int {
	n := 0
	for _, f := range r.Files {
		if f.Changed() {
			n++
		}
	}
	return n
}

type diagnosticView struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Name     string `json:"name,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

func newDiagnosticViews(diags []discovery.Diagnostic) []diagnosticView {
	views := make([]diagnosticView, 0, len(diags))
	for _, d := range diags {
		v := diagnosticView{
			Severity: string(d.Severity),
			Code:     string(d.Code),
			Message:  d.Message,
			Name:     d.Name,
		}
		if d.Cause != nil {
			v.Cause = d.Cause.Error()
		}
		views = append(views, v)
	}
	return views
}

// generate runs discovery for p and writes (or plans, when dryRun is set)
// the provider files.
func generate(p *project, dryRun bool, l *log.Logger, notify servicefile.NotifyFunc) (*runReport, error) {
	res, err := discovery.Run(p.Request)
	if err != nil {
		return nil, err
	}

	w := &servicefile.Writer{OutputDir: p.OutputDir, Logger: l, Notify: notify}
	var files []servicefile.File
	if dryRun {
		files, err = w.Plan(res.Set)
	} else {
		files, err = w.Write(res.Set)
	}
	if err != nil {
		return nil, err
	}

	return &runReport{
		DryRun:      dryRun,
		Files:       files,
		Diagnostics: newDiagnosticViews(res.Diagnostics),
		Scanned:     res.Scanned,
		Skipped:     res.Skipped,
	}, nil
}

func printReport(w io.Writer, r *runReport) error {
	if len(r.Files) == 0 {
		fmt.Fprintln(w, "No service types resolved; nothing to write")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tSERVICE\tIMPLEMENTATIONS\tCHANGES\tPATH")
		for _, f := range r.Files {
			status := f.Status.String()
			if r.DryRun && f.Changed() {
				status = "would be " + status
			}
			changes := "-"
			if len(f.Added)+len(f.Removed) > 0 {
				changes = fmt.Sprintf("+%d -%d", len(f.Added), len(f.Removed))
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", status, f.Service, len(f.Implementations), changes, f.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	for _, d := range r.Diagnostics {
		if d.Code == string(discovery.CodeCandidateSkipped) && d.Severity != string(discovery.SeverityError) {
			continue // counted below; details are logged at debug
		}
		fmt.Fprintf(w, "%s: %s\n", d.Severity, d.Message)
	}
	_, err := fmt.Fprintf(w, "\nScanned %d class(es), skipped %d, %d of %d provider file(s) changed\n",
		r.Scanned, r.Skipped, r.changed(), len(r.Files))
	return err
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
