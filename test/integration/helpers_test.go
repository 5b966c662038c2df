//go:build integration

package integration_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/manifest"
	"github.com/jvmtools/svcgen/internal/servicefile"
	"github.com/jvmtools/svcgen/internal/testutil"
)

// testProject holds paths of an isolated Maven-style project.
type testProject struct {
	Dir        string // project root, holds svcgen.yaml
	ClassesDir string // target/classes
	LibDir     string // lib/, holds dependency jars
}

// setupProject creates a project with an API jar on the classpath and a
// classes directory implementing its service types. SVCGEN_HOME is
// sandboxed for the duration of the test.
func setupProject(t *testing.T) *testProject {
	t.Helper()

	p := &testProject{Dir: t.TempDir()}
	p.ClassesDir = filepath.Join(p.Dir, "target", "classes")
	p.LibDir = filepath.Join(p.Dir, "lib")
	t.Setenv("SVCGEN_HOME", t.TempDir())

	testutil.WriteJar(t, filepath.Join(p.LibDir, "codec-api.jar"),
		testutil.Interface("org.codec.spi.Codec"),
		testutil.Abstract("org.codec.spi.AbstractCodec", "", "org.codec.spi.Codec"),
	)
	testutil.WriteClasses(t, p.ClassesDir,
		testutil.Public("com.acme.codec.JsonCodec", "org.codec.spi.AbstractCodec"),
		testutil.Public("com.acme.codec.XmlCodec", "org.codec.spi.AbstractCodec"),
		testutil.Public("com.acme.codec.TestCodec", "org.codec.spi.AbstractCodec"),
		testutil.Abstract("com.acme.codec.BaseCodec", "org.codec.spi.AbstractCodec"),
		testutil.Public("com.acme.jdbc.AcmeDriver", "", "java.sql.Driver"),
		testutil.Public("com.acme.junit.CodecTest", "junit.framework.TestCase"),
	)
	return p
}

// writeManifest writes svcgen.yaml into the project root.
func (p *testProject) writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(p.Dir, "svcgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// generate loads the project manifest and writes its provider files.
func generate(t *testing.T, path string, logOut io.Writer) (*discovery.Result, []servicefile.File) {
	t.Helper()
	res, files, err := runGenerate(path, logOut)
	if err != nil {
		t.Fatalf("generating from %s: %v", path, err)
	}
	return res, files
}

// runGenerate is generate without the test handle, for use off the test
// goroutine.
func runGenerate(path string, logOut io.Writer) (*discovery.Result, []servicefile.File, error) {
	m, err := manifest.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	if logOut == nil {
		logOut = &bytes.Buffer{}
	}
	logger := log.NewWithOptions(logOut, log.Options{Level: log.DebugLevel})

	policy := discovery.FailOnMissing
	if !m.FailOnMissing() {
		policy = discovery.SkipMissing
	}
	res, err := discovery.Run(discovery.Request{
		Classpath:       m.ClasspathPaths(),
		ClassesDir:      m.ClassesPath(),
		Services:        m.Services,
		Includes:        m.Includes,
		Excludes:        m.Excludes,
		MissingServices: policy,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, err
	}
	w := &servicefile.Writer{OutputDir: m.OutputPath(), Logger: logger}
	files, err := w.Write(res.Set)
	if err != nil {
		return nil, nil, err
	}
	return res, files, nil
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileEquals fails if the file doesn't exist or differs from want.
func assertFileEquals(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if string(data) != want {
		t.Errorf("file %s:\n got: %q\nwant: %q", path, data, want)
	}
}

// assertContains fails if s doesn't contain substr.
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("output does not contain %q.\nOutput:\n%s", substr, s)
	}
}
