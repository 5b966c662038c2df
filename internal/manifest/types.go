package manifest

import (
	"path/filepath"
)

// Manifest is a decoded svcgen.yaml.
type Manifest struct {
	// Requires is an optional semver constraint on the svcgen version.
	Requires   string   `yaml:"requires,omitempty" json:"requires,omitempty"`
	Services   []string `yaml:"services" json:"services"`
	ClassesDir string   `yaml:"classesDir" json:"classesDir"`
	// OutputDir defaults to ClassesDir.
	OutputDir string   `yaml:"outputDir,omitempty" json:"outputDir,omitempty"`
	Classpath []string `yaml:"classpath,omitempty" json:"classpath,omitempty"`
	Includes  []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Excludes  []string `yaml:"excludes,omitempty" json:"excludes,omitempty"`
	// FailOnMissingService defaults to true when omitted.
	FailOnMissingService *bool `yaml:"failOnMissingService,omitempty" json:"failOnMissingService,omitempty"`

	// Dir is the directory the manifest was read from. Relative paths are
	// resolved against it.
	Dir string `yaml:"-" json:"-"`
}

// FailOnMissing reports the effective missing-service policy.
func (m *Manifest) FailOnMissing() bool {
	return m.FailOnMissingService == nil || *m.FailOnMissingService
}

// ClassesPath returns ClassesDir resolved against Dir.
func (m *Manifest) ClassesPath() string {
	return m.resolve(m.ClassesDir)
}

// OutputPath returns OutputDir resolved against Dir, falling back to the
// classes directory.
func (m *Manifest) OutputPath() string {
	if m.OutputDir == "" {
		return m.ClassesPath()
	}
	return m.resolve(m.OutputDir)
}

// ClasspathPaths returns the classpath entries resolved against Dir.
func (m *Manifest) ClasspathPaths() []string {
	out := make([]string, len(m.Classpath))
	for i, p := range m.Classpath {
		out[i] = m.resolve(p)
	}
	return out
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, filepath.FromSlash(p))
}
