// Package branding holds the product identity of the CLI: its command name,
// home directory, environment prefix and manifest file name. The values are
// read from the embedded branding.yaml so a fork can rebrand without
// touching code.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

// Brand is the product identity.
type Brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	ManifestFile string `yaml:"manifest_file"`
	GitHubRepo   string `yaml:"github_repo"`
}

// fallback applies to any field branding.yaml leaves out.
var fallback = Brand{
	CLIName:      "svcgen",
	DisplayName:  "svcgen",
	Description:  "Generates META-INF/services provider files from compiled classes",
	HomeDir:      ".svcgen",
	EnvPrefix:    "SVCGEN",
	ManifestFile: "svcgen.yaml",
	GitHubRepo:   "jvmtools/svcgen",
}

var current = sync.OnceValue(func() Brand {
	b := fallback
	if err := yaml.Unmarshal(rawBranding, &b); err != nil {
		return fallback
	}
	return b
})

// Current returns the embedded identity.
func Current() Brand { return current() }

func CLIName() string      { return current().CLIName }
func DisplayName() string  { return current().DisplayName }
func Description() string  { return current().Description }
func HomeDir() string      { return current().HomeDir }
func EnvPrefix() string    { return current().EnvPrefix }
func ManifestFile() string { return current().ManifestFile }

// GitHubRepo returns the "owner/repo" the releases are published under.
func GitHubRepo() string { return current().GitHubRepo }

// ReleasesURL returns the web page listing published releases.
func ReleasesURL() string { return "https://github.com/" + GitHubRepo() + "/releases" }

// EnvVar returns a fully qualified env var name: EnvVar("home") is
// "SVCGEN_HOME".
func EnvVar(suffix string) string {
	return current().EnvPrefix + "_" + strings.ToUpper(suffix)
}
