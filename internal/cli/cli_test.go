package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jvmtools/svcgen/internal/config"
	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/manifest"
	"github.com/jvmtools/svcgen/internal/release"
	"github.com/jvmtools/svcgen/internal/servicefile"
	"github.com/jvmtools/svcgen/internal/testutil"
)

func writeFooProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteClasses(t, filepath.Join(dir, "classes"),
		testutil.Interface("com.foo.Service"),
		testutil.Abstract("com.foo.AbstractFoo", "", "com.foo.Service"),
		testutil.Public("com.foo.FooImpl", "com.foo.AbstractFoo"),
		testutil.Public("com.foo.FooImpl2", "com.foo.AbstractFoo"),
	)
	return dir
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func TestMerge_FlagsOnly(t *testing.T) {
	opts := projectOptions{services: []string{"com.foo.Service"}, classesDir: "build/classes"}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatalf("merge() error: %v", err)
	}
	if p.OutputDir != "build/classes" {
		t.Errorf("OutputDir = %q, want classes dir", p.OutputDir)
	}
	if p.Request.MissingServices != discovery.FailOnMissing {
		t.Error("missing services should fail by default")
	}
}

func TestMerge_FlagsOnlyIncomplete(t *testing.T) {
	tests := []struct {
		name string
		opts projectOptions
	}{
		{"nothing", projectOptions{}},
		{"no classes dir", projectOptions{services: []string{"a.B"}}},
		{"no services", projectOptions{classesDir: "classes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.merge(nil, quietLogger()); err == nil {
				t.Error("expected an error without a manifest")
			}
		})
	}
}

func TestMerge_FlagsOverrideManifest(t *testing.T) {
	no := false
	m := &manifest.Manifest{
		Services:             []string{"com.foo.Service"},
		ClassesDir:           "target/classes",
		Classpath:            []string{"lib/a.jar"},
		Includes:             []string{"com.foo.*"},
		FailOnMissingService: &no,
		Dir:                  "/project",
	}

	p, err := (&projectOptions{}).merge(m, quietLogger())
	if err != nil {
		t.Fatalf("merge() error: %v", err)
	}
	if p.Request.ClassesDir != filepath.Join("/project", "target", "classes") {
		t.Errorf("ClassesDir = %q", p.Request.ClassesDir)
	}
	if p.OutputDir != p.Request.ClassesDir {
		t.Errorf("OutputDir = %q, want classes dir", p.OutputDir)
	}
	if p.Request.MissingServices != discovery.SkipMissing {
		t.Error("manifest policy should be honoured")
	}

	opts := projectOptions{
		services:         []string{"com.bar.Other"},
		classesDir:       "out",
		excludes:         []string{"*Test*"},
		failOnMissing:    true,
		failOnMissingSet: true,
	}
	p, err = opts.merge(m, quietLogger())
	if err != nil {
		t.Fatalf("merge() error: %v", err)
	}
	if !reflect.DeepEqual(p.Request.Services, []string{"com.bar.Other"}) {
		t.Errorf("Services = %v", p.Request.Services)
	}
	if p.Request.ClassesDir != "out" || p.OutputDir != "out" {
		t.Errorf("ClassesDir = %q OutputDir = %q, want out", p.Request.ClassesDir, p.OutputDir)
	}
	if !reflect.DeepEqual(p.Request.Includes, []string{"com.foo.*"}) {
		t.Errorf("Includes = %v, manifest value should survive", p.Request.Includes)
	}
	if !reflect.DeepEqual(p.Request.Excludes, []string{"*Test*"}) {
		t.Errorf("Excludes = %v", p.Request.Excludes)
	}
	if p.Request.MissingServices != discovery.FailOnMissing {
		t.Error("--fail-on-missing-service should override the manifest")
	}
}

func TestGenerate_WritesThenUnchanged(t *testing.T) {
	dir := writeFooProject(t)
	classes := filepath.Join(dir, "classes")
	opts := projectOptions{services: []string{"com.foo.Service"}, classesDir: classes}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	var notified []string
	report, err := generate(p, false, quietLogger(), func(path string) { notified = append(notified, path) })
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	if report.changed() != 1 || len(notified) != 1 {
		t.Fatalf("changed = %d notified = %v, want one file", report.changed(), notified)
	}
	content, err := os.ReadFile(servicefile.Path(classes, "com.foo.Service"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "com.foo.FooImpl\ncom.foo.FooImpl2\n" {
		t.Errorf("provider file = %q", content)
	}

	report, err = generate(p, true, quietLogger(), nil)
	if err != nil {
		t.Fatalf("generate(dry run) error: %v", err)
	}
	if report.changed() != 0 {
		t.Errorf("second run changed %d file(s), want 0", report.changed())
	}
}

func TestGenerate_DryRunDoesNotWrite(t *testing.T) {
	dir := writeFooProject(t)
	classes := filepath.Join(dir, "classes")
	out := filepath.Join(dir, "out")
	opts := projectOptions{services: []string{"com.foo.Service"}, classesDir: classes, outputDir: out, excludes: []string{"*2"}}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	report, err := generate(p, true, quietLogger(), nil)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "META-INF")); !os.IsNotExist(err) {
		t.Error("dry run must not create files")
	}

	var buf bytes.Buffer
	if err := printReport(&buf, report); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"would be created", "com.foo.Service", "Scanned 4 class(es)"} {
		if !strings.Contains(s, want) {
			t.Errorf("report missing %q:\n%s", want, s)
		}
	}
	if got := report.Files[0].Implementations; !reflect.DeepEqual(got, []string{"com.foo.FooImpl"}) {
		t.Errorf("implementations = %v", got)
	}
}

func TestGenerate_MissingServiceFails(t *testing.T) {
	dir := writeFooProject(t)
	opts := projectOptions{services: []string{"com.example.MissingService"}, classesDir: filepath.Join(dir, "classes")}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, err = generate(p, false, quietLogger(), nil)
	var rerr *discovery.ServiceTypeResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *ServiceTypeResolutionError", err)
	}
}

func TestPrintJSON(t *testing.T) {
	report := &runReport{
		Files: []servicefile.File{{Service: "a.S", Path: "p", Status: servicefile.StatusUpdated, Implementations: []string{"a.I"}}},
		Diagnostics: newDiagnosticViews([]discovery.Diagnostic{{
			Severity: discovery.SeverityWarning,
			Code:     discovery.CodeCandidateSkipped,
			Message:  "candidate a.X is unusable",
			Cause:    errors.New("boom"),
		}}),
	}
	var buf bytes.Buffer
	if err := printJSON(&buf, report); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{`"status": "updated"`, `"code": "candidate_skipped"`, `"cause": "boom"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON missing %s:\n%s", want, s)
		}
	}
}

func TestPrintReport_ChangesAndErrors(t *testing.T) {
	report := &runReport{
		Files: []servicefile.File{{
			Service:         "a.S",
			Path:            "p",
			Status:          servicefile.StatusUpdated,
			Implementations: []string{"a.I", "a.J"},
			Added:           []string{"a.J"},
			Removed:         []string{"a.Old"},
		}},
		Diagnostics: newDiagnosticViews([]discovery.Diagnostic{
			{Severity: discovery.SeverityError, Code: discovery.CodeCandidateSkipped, Message: "candidate a.Broken is unusable"},
			{Severity: discovery.SeverityWarning, Code: discovery.CodeCandidateSkipped, Message: "candidate a.Quiet is unusable"},
		}),
	}
	var buf bytes.Buffer
	if err := printReport(&buf, report); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"CHANGES", "+1 -1", "error: candidate a.Broken is unusable"} {
		if !strings.Contains(s, want) {
			t.Errorf("report missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "a.Quiet") {
		t.Errorf("skipped-candidate warnings belong in the debug log:\n%s", s)
	}
}

func TestRunDoctor(t *testing.T) {
	t.Setenv("JAVA_HOME", "")
	dir := writeFooProject(t)
	jar := filepath.Join(dir, "lib", "api.jar")
	testutil.WriteJar(t, jar, testutil.Interface("com.api.Plugin"))

	opts := projectOptions{
		services:   []string{"com.foo.Service", "com.api.Plugin", "java.sql.Driver", "com.example.Missing"},
		classesDir: filepath.Join(dir, "classes"),
		classpath:  []string{jar, filepath.Join(dir, "absent")},
	}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	problems, err := runDoctor(&buf, p)
	if err != nil {
		t.Fatalf("runDoctor() error: %v", err)
	}
	if problems != 1 {
		t.Errorf("problems = %d, want 1 (the missing service)", problems)
	}
	s := buf.String()
	for _, want := range []string{
		"Classpath check (3 entries)",
		"(4 classes)",
		"(2 entries)", // manifest + one class
		"[MISS]",
		"[ OK ] java.sql.Driver: platform type",
		"[ OK ] com.api.Plugin: found in jar:file://",
		"(Java 8, public interface abstract)",
		"[FAIL] com.example.Missing: not found",
		"[MISS] no JDK configured",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("doctor output missing %q:\n%s", want, s)
		}
	}
}

func TestRunDoctor_JavaRuntime(t *testing.T) {
	home := t.TempDir()
	testutil.WriteJmod(t, filepath.Join(home, "jmods", "java.sql.jmod"), testutil.Interface("java.sql.Driver"))
	dir := writeFooProject(t)

	opts := projectOptions{
		services:   []string{"java.sql.Driver"},
		classesDir: filepath.Join(dir, "classes"),
		javaHome:   home,
	}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	problems, err := runDoctor(&buf, p)
	if err != nil {
		t.Fatalf("runDoctor() error: %v", err)
	}
	if problems != 0 {
		t.Errorf("problems = %d, want 0", problems)
	}
	s := buf.String()
	for _, want := range []string{
		"(1 class archive(s))",
		"Classpath check (1 entries)",
		"[ OK ] java.sql.Driver: found in jar:file://",
		"java.sql.jmod!/classes/",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("doctor output missing %q:\n%s", want, s)
		}
	}
}

func TestLogWritten(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	logWritten(l)("/out/META-INF/services/com.foo.Service")
	if !strings.Contains(buf.String(), "provider file written") || !strings.Contains(buf.String(), "com.foo.Service") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestRunManifestCheck(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(valid, []byte("services: [com.foo.Service]\nclassesDir: target/classes\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(invalid, []byte("services: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runManifestCheck(&buf, valid); err != nil {
		t.Errorf("valid manifest: %v", err)
	}
	if !strings.Contains(buf.String(), "[ OK ] Valid manifest: 1 service(s)") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	if err := runManifestCheck(&buf, invalid); err == nil {
		t.Error("invalid manifest should fail")
	}
	if !strings.Contains(buf.String(), "[FAIL]") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	shared := filepath.Join(dir, "shared")
	opts := projectOptions{
		services:   []string{"a.B"},
		classesDir: classes,
		classpath:  []string{filepath.Join(dir, "lib", "a.jar"), shared, classes},
	}
	p, err := opts.merge(nil, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	dirs, err := watchDirs(p)
	if err != nil {
		t.Fatalf("watchDirs() error: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{shared, classes}) {
		t.Errorf("watchDirs() = %v, want [%s %s]", dirs, shared, classes)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "WARN")
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level not applied: %q", buf.String())
	}

	if _, err := newLogger(&buf, "loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("SVCGEN_HOME", t.TempDir())
	buildVersion, buildCommit, buildDate = "1.2.3", "abc123", "2026-01-01"

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version", "--json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{`"version": "1.2.3"`, `"commit": "abc123"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestRunVersionCheck(t *testing.T) {
	t.Setenv("SVCGEN_HOME", t.TempDir())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v9.0.0"}`))
	}))
	defer server.Close()

	tests := []struct {
		current string
		want    string
	}{
		{"1.0.0", "Update available: 1.0.0 -> v9.0.0"},
		{"9.0.0", "is up to date"},
		{"dev", "Development build"},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			var buf bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&buf)
			cmd.SetContext(context.Background())
			c := release.NewChecker(tt.current, release.WithHTTPClient(server.Client()), release.WithBaseURL(server.URL))
			if err := runVersionCheck(cmd, c); err != nil {
				t.Fatalf("runVersionCheck() error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestListSettings(t *testing.T) {
	t.Setenv("SVCGEN_HOME", t.TempDir())
	if err := config.Load(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := listSettings(&buf); err != nil {
		t.Fatalf("listSettings() error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "KEY") {
		t.Errorf("missing header:\n%s", out)
	}
	for _, key := range config.Keys {
		if !strings.Contains(out, key) {
			t.Errorf("output missing %s:\n%s", key, out)
		}
	}
	if !strings.Contains(out, ".jar,.zip") {
		t.Errorf("archive extensions not listed:\n%s", out)
	}
}
