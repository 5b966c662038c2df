package discovery

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jvmtools/svcgen/internal/classpath"
	"github.com/jvmtools/svcgen/internal/resolve"
	"github.com/jvmtools/svcgen/internal/scan"
)

// MissingServicePolicy decides what happens to a declared service type that
// cannot be resolved.
type MissingServicePolicy int

const (
	// FailOnMissing aborts the run with a *ServiceTypeResolutionError.
	FailOnMissing MissingServicePolicy = iota
	// SkipMissing drops the service from the result and records a warning.
	SkipMissing
)

// Request describes one discovery run.
type Request struct {
	// Classpath lists directories and archives in search order.
	Classpath []string
	// ClassesDir is scanned for candidates. It is searched first for types
	// when the classpath does not already list it.
	ClassesDir string
	// Services are the binary names of the declared service types.
	Services []string
	Includes []string
	Excludes []string
	// MissingServices defaults to FailOnMissing.
	MissingServices MissingServicePolicy

	// JavaHome is a JDK whose jmods (or rt.jar) are searched after the
	// classpath for platform types. Empty means platform types that are not
	// on the classpath resolve to opaque stubs.
	JavaHome string

	ArchiveExtensions []string // nil means classpath.DefaultArchiveExtensions
	PlatformPackages  []string // nil means resolve.DefaultPlatformPackages
	MaxOpenArchives   int

	Logger *log.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	Set         *ServiceImplementationSet
	Diagnostics []Diagnostic
	// Scanned counts the compiled units found in the classes directory.
	Scanned int
	// Skipped counts the candidates that could not be resolved.
	Skipped int
}

// Run performs one discovery run. On a fatal error no result is returned.
func Run(req Request) (*Result, error) {
	logger := req.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	services := normalizeServices(req.Services)
	if len(services) == 0 {
		return nil, ErrNoServices
	}
	if strings.TrimSpace(req.ClassesDir) == "" {
		return nil, ErrNoClassesDir
	}
	filter, err := NewFilter(req.Includes, req.Excludes)
	if err != nil {
		return nil, err
	}

	var diags []Diagnostic
	runtime, err := req.runtimeEntries()
	if err != nil {
		logger.Warn("no usable Java runtime; platform supertypes stay opaque", "java_home", req.JavaHome, "err", err)
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeRuntimeUnavailable,
			Message:  fmt.Sprintf("JDK at %s has no class archives", req.JavaHome),
			Name:     req.JavaHome,
			Cause:    err,
		})
	} else if len(runtime) > 0 {
		logger.Debug("searching Java runtime for platform types", "java_home", req.JavaHome, "archives", len(runtime))
	}

	cp, err := classpath.Assemble(req.SearchPath(),
		classpath.WithRuntime(runtime...),
		classpath.WithArchiveExtensions(req.ArchiveExtensions...),
		classpath.WithMaxOpenArchives(req.MaxOpenArchives),
		classpath.WithArchiveErrorHandler(func(e classpath.Entry, err error) {
			logger.Warn("classpath archive unreadable; ignoring it", "entry", e.Path, "err", err)
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeArchiveUnreadable,
				Message:  fmt.Sprintf("archive %s cannot be read", e.Path),
				Name:     e.Path,
				Cause:    err,
			})
		}),
	)
	if err != nil {
		return nil, err
	}
	defer cp.Close()

	var opts []resolve.Option
	if req.PlatformPackages != nil {
		opts = append(opts, resolve.WithPlatformPackages(req.PlatformPackages...))
	}
	rctx := resolve.NewContext(cp, opts...)

	b := newBuilder()
	var resolved []*resolve.Type
	var resolvedNames []string
	for _, name := range services {
		r := rctx.Resolve(name)
		if r.Outcome != resolve.Found {
			if req.MissingServices == FailOnMissing {
				return nil, &ServiceTypeResolutionError{Service: name, Outcome: r.Outcome, Err: r.Err}
			}
			logger.Warn("service type cannot be resolved; skipping it", "service", name, "outcome", r.Outcome, "err", r.Err)
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeServiceUnresolved,
				Message:  fmt.Sprintf("service type %s is %s", name, r.Outcome),
				Name:     name,
				Cause:    r.Err,
			})
			continue
		}
		b.addService(name)
		resolved = append(resolved, r.Type)
		resolvedNames = append(resolvedNames, name)
	}

	if _, err := os.Stat(req.ClassesDir); errors.Is(err, os.ErrNotExist) {
		logger.Info("class folder does not exist; skipping scan", "dir", req.ClassesDir)
	}
	candidates, err := scan.Sorted(req.ClassesDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", req.ClassesDir, err)
	}
	if !filter.Empty() {
		logger.Debug("filtering implementations", "includes", req.Includes, "excludes", req.Excludes)
	}

	res := &Result{Scanned: len(candidates)}
	for _, name := range candidates {
		r := rctx.Resolve(name)
		if r.Outcome != resolve.Found {
			res.Skipped++
			logger.Debug("candidate cannot be resolved; skipping it", "candidate", name, "outcome", r.Outcome, "err", r.Err)
			diags = append(diags, Diagnostic{
				Severity: skipSeverity(r.Err),
				Code:     CodeCandidateSkipped,
				Message:  fmt.Sprintf("candidate %s is %s", name, r.Outcome),
				Name:     name,
				Cause:    r.Err,
			})
			continue
		}
		matched := matchServices(r.Type, resolved)
		for _, i := range matched {
			logger.Debug("candidate matches service", "candidate", name, "service", resolvedNames[i])
			b.add(resolvedNames[i], name)
		}
		if d, ok := opaqueDiagnostic(r.Type, resolved, matched); ok {
			logger.Warn(d.Message)
			diags = append(diags, d)
		}
	}

	res.Set = b.build(filter)
	res.Diagnostics = diags
	return res, nil
}

func (req Request) runtimeEntries() ([]classpath.Entry, error) {
	if strings.TrimSpace(req.JavaHome) == "" {
		return nil, nil
	}
	return classpath.FindRuntime(req.JavaHome)
}

// skipSeverity grades a skipped candidate. A class file that cannot be
// decoded or sits at the wrong path is a broken build output; a missing
// supertype or a module descriptor is expected in ordinary projects.
func skipSeverity(err error) Severity {
	var linkErr *resolve.LinkageError
	if errors.As(err, &linkErr) || errors.Is(err, resolve.ErrModuleDescriptor) {
		return SeverityWarning
	}
	return SeverityError
}

// opaqueDiagnostic reports an eligible candidate that might implement a
// platform service it was not matched to, because one of its supertypes is
// a platform stub. Only platform types can hide behind a stub.
func opaqueDiagnostic(t *resolve.Type, services []*resolve.Type, matched []int) (Diagnostic, bool) {
	if !Eligible(t) {
		return Diagnostic{}, false
	}
	opaque := t.OpaqueSupertypes()
	if len(opaque) == 0 {
		return Diagnostic{}, false
	}
	var hidden []string
	for i, s := range services {
		if s.Platform && !slices.Contains(matched, i) {
			hidden = append(hidden, s.Name)
		}
	}
	if len(hidden) == 0 {
		return Diagnostic{}, false
	}
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodePlatformSupertypeOpaque,
		Message: fmt.Sprintf("%s extends %s; cannot tell whether it implements %s without a JDK",
			t.Name, strings.Join(opaque, ", "), strings.Join(hidden, ", ")),
		Name: t.Name,
	}, true
}

// normalizeServices trims names, drops blanks and collapses duplicates to
// their first occurrence.
func normalizeServices(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SearchPath returns the classpath a run searches: the request classpath
// with the classes directory in front unless it is already listed.
func (req Request) SearchPath() []string {
	want, err := filepath.Abs(req.ClassesDir)
	if err != nil {
		want = filepath.Clean(req.ClassesDir)
	}
	for _, p := range req.Classpath {
		if abs, err := filepath.Abs(p); err == nil && abs == want {
			return req.Classpath
		}
	}
	return append([]string{req.ClassesDir}, req.Classpath...)
}
