package discovery_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/jvmtools/svcgen/internal/classfile"
	"github.com/jvmtools/svcgen/internal/classpath"
	"github.com/jvmtools/svcgen/internal/discovery"
	"github.com/jvmtools/svcgen/internal/resolve"
	"github.com/jvmtools/svcgen/internal/testutil"
)

// fooProject writes the AbstractFoo fixture: an abstract service with two
// concrete subclasses.
func fooProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "classes")
	testutil.WriteClasses(t, dir,
		testutil.Abstract("com.foo.AbstractFoo", ""),
		testutil.Public("com.foo.FooImpl", "com.foo.AbstractFoo"),
		testutil.Public("com.foo.FooImpl2", "com.foo.AbstractFoo"),
	)
	return dir
}

func mustRun(t *testing.T, req discovery.Request) *discovery.Result {
	t.Helper()
	res, err := discovery.Run(req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRun_Filters(t *testing.T) {
	dir := fooProject(t)

	tests := []struct {
		name     string
		includes []string
		excludes []string
		want     []string
	}{
		{"no filters", nil, nil, []string{"com.foo.FooImpl", "com.foo.FooImpl2"}},
		{"exclude *2*", nil, []string{"*2*"}, []string{"com.foo.FooImpl"}},
		{"include *2", []string{"*2"}, nil, []string{"com.foo.FooImpl2"}},
		{"include then exclude", []string{"com.foo.*"}, []string{"*Impl2"}, []string{"com.foo.FooImpl"}},
		{"exclude wins over include", []string{"*2"}, []string{"*2"}, []string{}},
		{"include matches nothing", []string{"org.*"}, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustRun(t, discovery.Request{
				ClassesDir: dir,
				Services:   []string{"com.foo.AbstractFoo"},
				Includes:   tt.includes,
				Excludes:   tt.excludes,
			})
			got, ok := res.Set.Implementations("com.foo.AbstractFoo")
			if !ok {
				t.Fatal("AbstractFoo missing from result")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("implementations = %v, want %v", got, tt.want)
			}
			if res.Scanned != 3 {
				t.Errorf("Scanned = %d, want 3", res.Scanned)
			}
		})
	}
}

func TestRun_MissingService(t *testing.T) {
	dir := fooProject(t)
	services := []string{"com.foo.MissingService", "com.foo.AbstractFoo"}

	t.Run("skip", func(t *testing.T) {
		res := mustRun(t, discovery.Request{
			ClassesDir:      dir,
			Services:        services,
			MissingServices: discovery.SkipMissing,
		})
		if _, ok := res.Set.Implementations("com.foo.MissingService"); ok {
			t.Error("MissingService should be absent from the result")
		}
		if got := res.Set.Services(); !reflect.DeepEqual(got, []string{"com.foo.AbstractFoo"}) {
			t.Errorf("Services() = %v", got)
		}
		if n := discovery.CountCode(res.Diagnostics, discovery.CodeServiceUnresolved); n != 1 {
			t.Errorf("service_unresolved diagnostics = %d, want 1", n)
		}
	})

	t.Run("fail", func(t *testing.T) {
		res, err := discovery.Run(discovery.Request{
			ClassesDir: dir,
			Services:   services,
		})
		if res != nil {
			t.Error("a failed run must not return a partial result")
		}
		var stre *discovery.ServiceTypeResolutionError
		if !errors.As(err, &stre) {
			t.Fatalf("err = %v, want *ServiceTypeResolutionError", err)
		}
		if stre.Service != "com.foo.MissingService" || stre.Outcome != resolve.NotFound {
			t.Errorf("error = %+v", stre)
		}
		if !strings.Contains(err.Error(), "com.foo.MissingService") {
			t.Errorf("message %q should name the service", err.Error())
		}
	})

	t.Run("unusable service fails too", func(t *testing.T) {
		broken := t.TempDir()
		testutil.WriteClasses(t, broken, testutil.Interface("com.foo.Broken", "com.gone.Parent"))
		_, err := discovery.Run(discovery.Request{
			ClassesDir: broken,
			Services:   []string{"com.foo.Broken"},
		})
		var stre *discovery.ServiceTypeResolutionError
		if !errors.As(err, &stre) || stre.Outcome != resolve.Unusable {
			t.Fatalf("err = %v, want unusable *ServiceTypeResolutionError", err)
		}
	})
}

func TestRun_Eligibility(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClasses(t, dir,
		testutil.Interface("com.foo.Service"),
		testutil.Public("com.foo.Impl", "", "com.foo.Service"),
		testutil.Abstract("com.foo.AbstractImpl", "", "com.foo.Service"),
		testutil.Interface("com.foo.SubService", "com.foo.Service"),
		testutil.Anonymous("com.foo.Factory$1", "", "com.foo.Service"),
		testutil.Nested("com.foo.Factory", "Hidden", classfile.AccPrivate|classfile.AccStatic, "", "com.foo.Service"),
		testutil.Nested("com.foo.Factory", "Shared", classfile.AccPublic|classfile.AccStatic, "", "com.foo.Service"),
		testutil.Enum("com.foo.Modes", "com.foo.Service"),
		testutil.Class{Name: "com.foo.PackagePrivate", Interfaces: []string{"com.foo.Service"}, Access: classfile.AccSuper},
	)

	res := mustRun(t, discovery.Request{ClassesDir: dir, Services: []string{"com.foo.Service"}})
	got, _ := res.Set.Implementations("com.foo.Service")
	want := []string{"com.foo.Factory$Shared", "com.foo.Impl"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("implementations = %v, want %v", got, want)
	}
}

func TestRun_ConcreteServiceNeverListsItself(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClasses(t, dir,
		testutil.Public("com.foo.Baz", ""),
		testutil.Public("com.foo.BazExt", "com.foo.Baz"),
	)

	res := mustRun(t, discovery.Request{ClassesDir: dir, Services: []string{"com.foo.Baz"}})
	got, _ := res.Set.Implementations("com.foo.Baz")
	if !reflect.DeepEqual(got, []string{"com.foo.BazExt"}) {
		t.Errorf("implementations = %v, want [com.foo.BazExt]", got)
	}
}

func TestRun_MultipleServices(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClasses(t, dir,
		testutil.Interface("com.foo.Reader"),
		testutil.Interface("com.foo.Writer"),
		testutil.Interface("com.foo.Unused"),
		testutil.Public("com.foo.Both", "", "com.foo.Reader", "com.foo.Writer"),
		testutil.Public("com.foo.OnlyReader", "", "com.foo.Reader"),
	)

	res := mustRun(t, discovery.Request{
		ClassesDir: dir,
		Services:   []string{"com.foo.Writer", "com.foo.Reader", "com.foo.Writer", " ", "com.foo.Unused"},
	})

	wantOrder := []string{"com.foo.Writer", "com.foo.Reader", "com.foo.Unused"}
	if got := res.Set.Services(); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("Services() = %v, want %v", got, wantOrder)
	}
	want := map[string][]string{
		"com.foo.Writer": {"com.foo.Both"},
		"com.foo.Reader": {"com.foo.Both", "com.foo.OnlyReader"},
		"com.foo.Unused": {},
	}
	if got := res.Set.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
}

func TestRun_ServiceFromArchive(t *testing.T) {
	root := t.TempDir()
	jar := filepath.Join(root, "lib", "api.jar")
	classes := filepath.Join(root, "classes")
	testutil.WriteJar(t, jar,
		testutil.Interface("com.api.Plugin"),
		testutil.Public("com.api.BuiltIn", "", "com.api.Plugin"),
	)
	testutil.WriteClasses(t, classes,
		testutil.Public("com.impl.MyPlugin", "", "com.api.Plugin"),
		testutil.Public("com.impl.JdbcDriver", "", "java.sql.Driver"),
	)

	res := mustRun(t, discovery.Request{
		Classpath:  []string{jar},
		ClassesDir: classes,
		Services:   []string{"com.api.Plugin", "java.sql.Driver"},
	})
	want := map[string][]string{
		// archive classes are never candidates
		"com.api.Plugin":  {"com.impl.MyPlugin"},
		"java.sql.Driver": {"com.impl.JdbcDriver"},
	}
	if got := res.Set.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
}

func TestRun_ClassesDirSearchedFirst(t *testing.T) {
	root := t.TempDir()
	jar := filepath.Join(root, "stale.jar")
	classes := filepath.Join(root, "classes")
	// the stale copy of Impl in the jar does not implement Service
	testutil.WriteJar(t, jar, testutil.Public("com.foo.Impl", ""))
	testutil.WriteClasses(t, classes,
		testutil.Interface("com.foo.Service"),
		testutil.Public("com.foo.Impl", "", "com.foo.Service"),
	)

	res := mustRun(t, discovery.Request{
		Classpath:  []string{jar},
		ClassesDir: classes,
		Services:   []string{"com.foo.Service"},
	})
	got, _ := res.Set.Implementations("com.foo.Service")
	if !reflect.DeepEqual(got, []string{"com.foo.Impl"}) {
		t.Errorf("implementations = %v, want [com.foo.Impl]", got)
	}
}

func TestRun_CandidateFailuresAreSkipped(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClasses(t, dir,
		testutil.Interface("com.foo.Service"),
		testutil.Public("com.foo.Good", "", "com.foo.Service"),
		testutil.Public("com.foo.NeedsJUnit", "org.junit.TestCase", "com.foo.Service"),
	)
	testutil.WriteFile(t, dir, "com/foo/Corrupt.class", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0})

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	res := mustRun(t, discovery.Request{
		ClassesDir: dir,
		Services:   []string{"com.foo.Service"},
		Logger:     logger,
	})

	got, _ := res.Set.Implementations("com.foo.Service")
	if !reflect.DeepEqual(got, []string{"com.foo.Good"}) {
		t.Errorf("implementations = %v, want [com.foo.Good]", got)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if n := discovery.CountCode(res.Diagnostics, discovery.CodeCandidateSkipped); n != 2 {
		t.Errorf("candidate_skipped diagnostics = %d, want 2", n)
	}
	if !strings.Contains(buf.String(), "com.foo.NeedsJUnit") {
		t.Errorf("debug log should mention the skipped candidate:\n%s", buf.String())
	}
	severity := map[string]discovery.Severity{}
	for _, d := range res.Diagnostics {
		severity[d.Name] = d.Severity
	}
	if severity["com.foo.Corrupt"] != discovery.SeverityError {
		t.Errorf("corrupt class severity = %q, want error", severity["com.foo.Corrupt"])
	}
	if severity["com.foo.NeedsJUnit"] != discovery.SeverityWarning {
		t.Errorf("missing supertype severity = %q, want warning", severity["com.foo.NeedsJUnit"])
	}
}

func TestRun_MissingClassesDir(t *testing.T) {
	root := t.TempDir()
	jar := filepath.Join(root, "api.jar")
	testutil.WriteJar(t, jar, testutil.Interface("com.api.Plugin"))

	tests := []struct {
		name       string
		classesDir string
		wantLog    bool
	}{
		{"missing", filepath.Join(root, "target", "classes"), true},
		{"empty", t.TempDir(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			res := mustRun(t, discovery.Request{
				Classpath:  []string{jar},
				ClassesDir: tt.classesDir,
				Services:   []string{"com.api.Plugin"},
				Logger:     log.New(&buf),
			})
			got, ok := res.Set.Implementations("com.api.Plugin")
			if !ok || len(got) != 0 {
				t.Errorf("Implementations = %v, %v; want empty list present", got, ok)
			}
			if res.Scanned != 0 {
				t.Errorf("Scanned = %d, want 0", res.Scanned)
			}
			if logged := strings.Contains(buf.String(), "class folder does not exist"); logged != tt.wantLog {
				t.Errorf("missing-folder message logged = %v, want %v:\n%s", logged, tt.wantLog, buf.String())
			}
		})
	}
}

// myListProject writes a list implementation that reaches java.util.List
// only through the JDK's AbstractList.
func myListProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "classes")
	testutil.WriteClasses(t, dir,
		testutil.Public("com.foo.MyList", "java.util.AbstractList"),
		testutil.Public("com.foo.Unrelated", ""),
	)
	return dir
}

func fakeJDK(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	testutil.WriteJmod(t, filepath.Join(home, "jmods", "java.base.jmod"),
		testutil.Interface("java.lang.Iterable"),
		testutil.Interface("java.util.Collection", "java.lang.Iterable"),
		testutil.Interface("java.util.List", "java.util.Collection"),
		testutil.Abstract("java.util.AbstractCollection", "", "java.util.Collection"),
		testutil.Abstract("java.util.AbstractList", "java.util.AbstractCollection", "java.util.List"),
	)
	return home
}

func TestRun_PlatformSupertypesFromJDK(t *testing.T) {
	res := mustRun(t, discovery.Request{
		ClassesDir: myListProject(t),
		Services:   []string{"java.util.List", "java.lang.Iterable"},
		JavaHome:   fakeJDK(t),
	})
	for _, service := range []string{"java.util.List", "java.lang.Iterable"} {
		got, _ := res.Set.Implementations(service)
		if !reflect.DeepEqual(got, []string{"com.foo.MyList"}) {
			t.Errorf("%s implementations = %v, want [com.foo.MyList]", service, got)
		}
	}
	if n := discovery.CountCode(res.Diagnostics, discovery.CodePlatformSupertypeOpaque); n != 0 {
		t.Errorf("platform_supertype_opaque diagnostics = %d, want 0 with a JDK", n)
	}
}

func TestRun_OpaquePlatformSupertypeWithoutJDK(t *testing.T) {
	res := mustRun(t, discovery.Request{
		ClassesDir: myListProject(t),
		Services:   []string{"java.util.List"},
	})
	if got, _ := res.Set.Implementations("java.util.List"); len(got) != 0 {
		t.Errorf("implementations = %v, want none without JDK metadata", got)
	}
	var found []discovery.Diagnostic
	for _, d := range res.Diagnostics {
		if d.Code == discovery.CodePlatformSupertypeOpaque {
			found = append(found, d)
		}
	}
	if len(found) != 1 || found[0].Name != "com.foo.MyList" || found[0].Severity != discovery.SeverityWarning {
		t.Fatalf("opaque diagnostics = %+v, want one warning for com.foo.MyList", found)
	}
	if !strings.Contains(found[0].Message, "java.util.AbstractList") {
		t.Errorf("message = %q, want it to name the opaque supertype", found[0].Message)
	}
}

func TestRun_JavaHomeWithoutArchives(t *testing.T) {
	res := mustRun(t, discovery.Request{
		ClassesDir: myListProject(t),
		Services:   []string{"java.util.List"},
		JavaHome:   t.TempDir(),
	})
	if n := discovery.CountCode(res.Diagnostics, discovery.CodeRuntimeUnavailable); n != 1 {
		t.Errorf("runtime_unavailable diagnostics = %d, want 1", n)
	}
	if n := discovery.CountCode(res.Diagnostics, discovery.CodePlatformSupertypeOpaque); n != 1 {
		t.Errorf("platform_supertype_opaque diagnostics = %d, want 1 after falling back to stubs", n)
	}
}

func TestRun_CorruptArchiveIsDiagnosed(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "bad.jar")
	if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	classes := fooProject(t)

	res := mustRun(t, discovery.Request{
		Classpath:  []string{bad},
		ClassesDir: classes,
		Services:   []string{"com.foo.AbstractFoo"},
	})
	if n := discovery.CountCode(res.Diagnostics, discovery.CodeArchiveUnreadable); n != 1 {
		t.Errorf("archive_unreadable diagnostics = %d, want 1", n)
	}
	if got, _ := res.Set.Implementations("com.foo.AbstractFoo"); len(got) != 2 {
		t.Errorf("implementations = %v, want two", got)
	}
}

func TestRun_InvalidRequests(t *testing.T) {
	dir := fooProject(t)

	tests := []struct {
		name  string
		req   discovery.Request
		check func(error) bool
	}{
		{
			"no services",
			discovery.Request{ClassesDir: dir},
			func(err error) bool { return errors.Is(err, discovery.ErrNoServices) },
		},
		{
			"blank services",
			discovery.Request{ClassesDir: dir, Services: []string{"", "  "}},
			func(err error) bool { return errors.Is(err, discovery.ErrNoServices) },
		},
		{
			"no classes dir",
			discovery.Request{Services: []string{"com.foo.AbstractFoo"}},
			func(err error) bool { return errors.Is(err, discovery.ErrNoClassesDir) },
		},
		{
			"bad include",
			discovery.Request{ClassesDir: dir, Services: []string{"com.foo.AbstractFoo"}, Includes: []string{"com.[foo"}},
			func(err error) bool {
				var pe *discovery.PatternError
				return errors.As(err, &pe) && pe.Kind == "include"
			},
		},
		{
			"bad classpath entry",
			discovery.Request{ClassesDir: dir, Services: []string{"com.foo.AbstractFoo"}, Classpath: []string{"lib/\x00.jar"}},
			func(err error) bool {
				var ce *classpath.ConfigurationError
				return errors.As(err, &ce)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := discovery.Run(tt.req)
			if res != nil {
				t.Error("result should be nil on a fatal error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequest_SearchPath(t *testing.T) {
	root := t.TempDir()
	classes := filepath.Join(root, "classes")
	jar := filepath.Join(root, "lib", "api.jar")

	tests := []struct {
		name      string
		classpath []string
		want      []string
	}{
		{"prepended", []string{jar}, []string{classes, jar}},
		{"already listed", []string{jar, classes}, []string{jar, classes}},
		{"empty classpath", nil, []string{classes}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := discovery.Request{ClassesDir: classes, Classpath: tt.classpath}
			if got := req.SearchPath(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchPath() = %v, want %v", got, tt.want)
			}
		})
	}
}
