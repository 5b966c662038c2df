package servicefile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/platform"
)

// Dir is the provider-file directory relative to the output root.
const Dir = "META-INF/services"

// Status describes what writing a provider file did or would do.
type Status int

const (
	StatusCreated Status = iota
	StatusUpdated
	StatusUnchanged
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusUpdated:
		return "updated"
	case StatusUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// File is one provider file of a result.
type File struct {
	Service         string   `json:"service"`
	Path            string   `json:"path"`
	Status          Status   `json:"status"`
	Implementations []string `json:"implementations"`
	// Added and Removed compare an updated file with the names it listed
	// before. Comments and blank lines in the old file are ignored.
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Changed reports whether the file was (or would be) written.
func (f File) Changed() bool { return f.Status != StatusUnchanged }

// WriteError reports a provider file that could not be read or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing provider file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NotifyFunc is called with the path of every created or updated file.
type NotifyFunc func(path string)

// Writer writes provider files below OutputDir.
type Writer struct {
	OutputDir string
	Notify    NotifyFunc
	Logger    *log.Logger
}

// Path returns the provider file for service below outputDir.
func Path(outputDir, service string) string {
	return filepath.Join(outputDir, filepath.FromSlash(Dir), service)
}

// Render returns the file content for a list of implementations: each name
// on its own newline-terminated line. No implementations give empty content.
func Render(impls []string) []byte {
	var b bytes.Buffer
	for _, impl := range impls {
		b.WriteString(impl)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Parse reads provider-file content. Blank lines and '#' comments are
// ignored, as the runtime loader does.
func Parse(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, sc.Err()
}

// difference returns the names only in next and the names only in prev.
func difference(next, prev []string) (added, removed []string) {
	for _, n := range next {
		if !slices.Contains(prev, n) {
			added = append(added, n)
		}
	}
	for _, p := range prev {
		if !slices.Contains(next, p) && !slices.Contains(removed, p) {
			removed = append(removed, p)
		}
	}
	return added, removed
}

// Plan compares set with the files on disk and reports what Write would do,
// without touching the filesystem.
func (w *Writer) Plan(set *discovery.ServiceImplementationSet) ([]File, error) {
	files := make([]File, 0, set.Len())
	for _, service := range set.Services() {
		impls, _ := set.Implementations(service)
		f := File{Service: service, Path: Path(w.OutputDir, service), Implementations: impls}

		current, err := os.ReadFile(f.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			f.Status = StatusCreated
		case err != nil:
			return nil, &WriteError{Path: f.Path, Err: err}
		case bytes.Equal(current, Render(impls)):
			f.Status = StatusUnchanged
		default:
			f.Status = StatusUpdated
			previous, err := Parse(bytes.NewReader(current))
			if err != nil {
				return nil, &WriteError{Path: f.Path, Err: err}
			}
			f.Added, f.Removed = difference(impls, previous)
		}
		files = append(files, f)
	}
	return files, nil
}

// Write persists set. Files whose content is already current are left
// alone and not notified. The first I/O failure aborts with a *WriteError.
func (w *Writer) Write(set *discovery.ServiceImplementationSet) ([]File, error) {
	logger := w.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	files, err := w.Plan(set)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if !f.Changed() {
			logger.Debug("provider file is up to date", "service", f.Service)
			continue
		}
		if err := platform.WriteFileAtomic(f.Path, Render(f.Implementations), platform.FilePerm); err != nil {
			return nil, &WriteError{Path: f.Path, Err: err}
		}
		logger.Info("generated provider file", "service", f.Service, "path", f.Path, "status", f.Status)
		for _, impl := range f.Implementations {
			logger.Info("  + " + impl)
		}
		if w.Notify != nil {
			w.Notify(f.Path)
		}
	}
	return files, nil
}
