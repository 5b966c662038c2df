package scaffold

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/manifest"
	"github.com/jvmtools/svcgen/internal/platform"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const manifestTemplate = "templates/svcgen.yaml.tmpl"

// DefaultClassesDir is used when no known build layout is found.
const DefaultClassesDir = "target/classes"

// knownLayouts are classes directories of common JVM build tools, in order
// of preference.
var knownLayouts = []string{
	"target/classes",            // Maven
	"build/classes/java/main",   // Gradle (Java)
	"build/classes/kotlin/main", // Gradle (Kotlin)
	"out/production/classes",    // IntelliJ
}

// ErrExists is returned when the manifest already exists and Force is off.
var ErrExists = errors.New("manifest already exists")

// Data holds the template variables for a starter manifest.
type Data struct {
	Requires   string
	Services   []string
	ClassesDir string
	OutputDir  string
	Classpath  []string
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	Path     string
	Warnings []string
}

// DetectClassesDir returns the first known build layout present below dir,
// or DefaultClassesDir.
func DetectClassesDir(dir string) string {
	for _, layout := range knownLayouts {
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(layout))); err == nil && info.IsDir() {
			return layout
		}
	}
	return DefaultClassesDir
}

// Render executes the manifest template.
func Render(data *Data) ([]byte, error) {
	tmpl, err := template.New(filepath.Base(manifestTemplate)).
		Funcs(template.FuncMap{"quote": quote}).
		ParseFS(templateFS, manifestTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// Generate writes the manifest into dir. An existing manifest is only
// replaced when force is set. Schema problems in the rendered manifest,
// such as a missing service, are reported as warnings.
func Generate(dir string, data *Data, force bool) (*Result, error) {
	if data.ClassesDir == "" {
		data.ClassesDir = DetectClassesDir(dir)
	}

	path := filepath.Join(dir, branding.ManifestFile())
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
	}

	content, err := Render(data)
	if err != nil {
		return nil, err
	}
	if err := platform.WriteFileAtomic(path, content, platform.FilePerm); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	result := &Result{Path: path}
	valResult, valErr := manifest.Validate(content)
	if valErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not validate manifest: %v", valErr))
	} else if !valResult.Valid {
		for _, issue := range valResult.Issues {
			result.Warnings = append(result.Warnings, issue.String())
		}
	}
	return result, nil
}

// quote renders s as a YAML double-quoted scalar.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
