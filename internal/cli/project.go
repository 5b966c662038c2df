package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/config"
	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/manifest"
)

// projectOptions holds the flags shared by commands that run discovery.
// Flags override the matching manifest fields.
type projectOptions struct {
	manifestPath  string
	services      []string
	classpath     []string
	classesDir    string
	outputDir     string
	javaHome      string
	includes      []string
	excludes      []string
	failOnMissing bool
	// failOnMissingSet records whether --fail-on-missing-service was given.
	failOnMissingSet bool
}

func (o *projectOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.manifestPath, "file", "f", "", "Project manifest (default: nearest "+branding.ManifestFile()+")")
	f.StringArrayVar(&o.services, "service", nil, "Service type binary name (repeatable)")
	f.StringArrayVar(&o.classpath, "classpath", nil, "Classpath directory or archive (repeatable)")
	f.StringVar(&o.classesDir, "classes-dir", "", "Directory of compiled classes to scan")
	f.StringVar(&o.outputDir, "output-dir", "", "Directory receiving META-INF/services (default: classes dir)")
	f.StringVar(&o.javaHome, "java-home", "", "JDK whose jmods resolve platform supertypes (default: java_home setting, then $JAVA_HOME)")
	f.StringArrayVar(&o.includes, "include", nil, "Glob an implementation name must match (repeatable)")
	f.StringArrayVar(&o.excludes, "exclude", nil, "Glob that drops matching implementations (repeatable)")
	f.BoolVar(&o.failOnMissing, "fail-on-missing-service", true, "Fail when a service type cannot be resolved")
}

// project is a fully resolved set of discovery inputs.
type project struct {
	// Manifest is nil when the inputs came from flags alone.
	Manifest  *manifest.Manifest
	Request   discovery.Request
	OutputDir string
}

// load merges the manifest, flags and user config into a project.
func (o *projectOptions) load(cmd *cobra.Command, l *log.Logger) (*project, error) {
	o.failOnMissingSet = cmd.Flags().Changed("fail-on-missing-service")

	m, err := o.findManifest()
	if err != nil {
		return nil, err
	}
	if m != nil {
		if err := m.CheckRequires(buildVersion); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", m.Dir, err)
		}
	}
	return o.merge(m, l)
}

// findManifest returns the manifest named by --file, or the nearest one
// above the working directory. Without --file a missing manifest is not an
// error.
func (o *projectOptions) findManifest() (*manifest.Manifest, error) {
	if o.manifestPath != "" {
		return manifest.ParseFile(o.manifestPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	path, err := manifest.Find(cwd)
	if errors.Is(err, manifest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return manifest.ParseFile(path)
}

// merge applies flag overrides on top of m, which may be nil.
func (o *projectOptions) merge(m *manifest.Manifest, l *log.Logger) (*project, error) {
	req := discovery.Request{
		ArchiveExtensions: config.ArchiveExtensions(),
		PlatformPackages:  config.PlatformPackages(),
		MaxOpenArchives:   config.MaxOpenArchives(),
		JavaHome:          config.JavaHome(),
		Logger:            l,
	}
	p := &project{Manifest: m}
	failOnMissing := true

	if m != nil {
		req.Services = m.Services
		req.ClassesDir = m.ClassesPath()
		req.Classpath = m.ClasspathPaths()
		req.Includes = m.Includes
		req.Excludes = m.Excludes
		p.OutputDir = m.OutputPath()
		failOnMissing = m.FailOnMissing()
	}

	if len(o.services) > 0 {
		req.Services = o.services
	}
	if len(o.classpath) > 0 {
		req.Classpath = o.classpath
	}
	if o.classesDir != "" {
		req.ClassesDir = o.classesDir
		if m == nil || m.OutputDir == "" {
			p.OutputDir = o.classesDir
		}
	}
	if o.outputDir != "" {
		p.OutputDir = o.outputDir
	}
	if o.javaHome != "" {
		req.JavaHome = o.javaHome
	}
	if len(o.includes) > 0 {
		req.Includes = o.includes
	}
	if len(o.excludes) > 0 {
		req.Excludes = o.excludes
	}
	if o.failOnMissingSet {
		failOnMissing = o.failOnMissing
	}
	if !failOnMissing {
		req.MissingServices = discovery.SkipMissing
	}

	if m == nil && (len(req.Services) == 0 || req.ClassesDir == "") {
		return nil, fmt.Errorf("no %s found; pass --service and --classes-dir or run '%s init'",
			branding.ManifestFile(), branding.CLIName())
	}
	p.Request = req
	return p, nil
}
