package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/version"
)

// ErrNotFound is returned by Find when no manifest exists in the directory
// or any of its parents.
var ErrNotFound = errors.New("no manifest found")

// InvalidError reports a manifest that does not satisfy the schema.
type InvalidError struct {
	Path   string
	Issues []ValidationIssue
}

func (e *InvalidError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "manifest %s is invalid:", e.Path)
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, "\n  %s", issue)
	}
	return b.String()
}

// Parse validates and decodes manifest YAML. dir becomes Manifest.Dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &InvalidError{Issues: result.Issues}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	m.Dir = dir
	return &m, nil
}

// ParseFile reads, validates and decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	m, err := Parse(data, filepath.Dir(abs))
	var invalid *InvalidError
	if errors.As(err, &invalid) {
		invalid.Path = path
	}
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// CheckRequires verifies that current satisfies the manifest's requires
// constraint.
func (m *Manifest) CheckRequires(current string) error {
	return version.Check(m.Requires, current)
}

// Find looks for the manifest file in start and then in each parent
// directory, returning the first one found.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, branding.ManifestFile())
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s in %s or any parent", ErrNotFound, branding.ManifestFile(), start)
		}
		dir = parent
	}
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
