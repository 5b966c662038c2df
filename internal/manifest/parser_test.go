package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jvmtools/svcgen/internal/version"
)

func TestParseFile_Full(t *testing.T) {
	m, err := ParseFile(testPath("valid-full.yaml"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}

	wantServices := []string{"com.foo.AbstractFoo", "com.foo.spi.Plugin$Factory"}
	if !reflect.DeepEqual(m.Services, wantServices) {
		t.Errorf("Services = %v, want %v", m.Services, wantServices)
	}
	if m.FailOnMissing() {
		t.Error("FailOnMissing() = true, want false")
	}
	if m.Requires != ">=0.1.0" {
		t.Errorf("Requires = %q", m.Requires)
	}

	dir, _ := filepath.Abs("testdata")
	if m.Dir != dir {
		t.Errorf("Dir = %q, want %q", m.Dir, dir)
	}
	if got, want := m.ClassesPath(), filepath.Join(dir, "target", "classes"); got != want {
		t.Errorf("ClassesPath() = %q, want %q", got, want)
	}
	if got, want := m.OutputPath(), filepath.Join(dir, "target", "generated"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
	cp := m.ClasspathPaths()
	if cp[0] != filepath.Join(dir, "lib", "api.jar") {
		t.Errorf("classpath[0] = %q, want it resolved against the manifest dir", cp[0])
	}
	if filepath.IsAbs("/opt/shared/classes") && cp[1] != "/opt/shared/classes" {
		t.Errorf("classpath[1] = %q, absolute paths must be kept", cp[1])
	}
}

func TestParseFile_Defaults(t *testing.T) {
	m, err := ParseFile(testPath("valid-minimal.yaml"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if !m.FailOnMissing() {
		t.Error("FailOnMissing() should default to true")
	}
	if m.OutputPath() != m.ClassesPath() {
		t.Errorf("OutputPath() = %q, want classes dir %q", m.OutputPath(), m.ClassesPath())
	}
	if len(m.Includes) != 0 || len(m.Excludes) != 0 {
		t.Error("selectors should default to empty")
	}
}

func TestParseFile_Invalid(t *testing.T) {
	_, err := ParseFile(testPath("invalid-empty-services.yaml"))
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidError", err)
	}
	if invalid.Path != testPath("invalid-empty-services.yaml") {
		t.Errorf("Path = %q", invalid.Path)
	}
	if !strings.Contains(err.Error(), "/services") {
		t.Errorf("error %q should name the offending field", err.Error())
	}
}

func TestCheckRequires(t *testing.T) {
	m := &Manifest{Requires: ">=1.0.0"}
	if err := m.CheckRequires("0.9.0"); !errors.Is(err, version.ErrUnsatisfied) {
		t.Errorf("CheckRequires(0.9.0) = %v, want ErrUnsatisfied", err)
	}
	if err := m.CheckRequires("1.2.0"); err != nil {
		t.Errorf("CheckRequires(1.2.0) = %v", err)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "module", "src", "main")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	manifestPath := filepath.Join(root, "module", "svcgen.yaml")
	if err := os.WriteFile(manifestPath, []byte("services: [a.B]\nclassesDir: out\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Find(nested)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got != manifestPath {
		t.Errorf("Find = %q, want %q", got, manifestPath)
	}

	if _, err := Find(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(empty) err = %v, want ErrNotFound", err)
	}
}
