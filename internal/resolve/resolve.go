package resolve

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jvmtools/svcgen/internal/classfile"
	"github.com/jvmtools/svcgen/internal/classpath"
)

// Outcome classifies the result of resolving a name.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	Unusable
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Unusable:
		return "unusable"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var (
	// ErrNotFound marks a name absent from the classpath.
	ErrNotFound = errors.New("not found on classpath")
	// ErrWrongName marks a class file whose declared name differs from its location.
	ErrWrongName = errors.New("class file declares a different name")
	// ErrModuleDescriptor marks a module-info class file.
	ErrModuleDescriptor = errors.New("module descriptor is not a type")
	// ErrCircularity marks a class that is its own supertype.
	ErrCircularity = errors.New("class circularity")
	// ErrIncompatibleSupertype marks a class extending an interface or
	// implementing a class.
	ErrIncompatibleSupertype = errors.New("incompatible supertype")
)

// LinkageError reports a located class whose supertype could not be linked.
type LinkageError struct {
	Name    string // class being linked
	Missing string // supertype that failed
	Err     error
}

func (e *LinkageError) Error() string {
	return fmt.Sprintf("linking %s: supertype %s: %v", e.Name, e.Missing, e.Err)
}

func (e *LinkageError) Unwrap() error { return e.Err }

// DefaultPlatformPackages are package prefixes provided by the Java runtime
// itself. Types under them that are not on the classpath resolve to opaque
// platform stubs instead of NotFound.
var DefaultPlatformPackages = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"com.sun.",
	"org.w3c.",
	"org.xml.",
}

// Type is a linked type handle. Handles from the same Context can be
// compared by identity.
type Type struct {
	Name         string
	Modifiers    classfile.AccessFlags
	Anonymous    bool
	Enum         bool
	Super        *Type
	Interfaces   []*Type
	Origin       classpath.Entry // zero for platform stubs
	Platform     bool            // opaque runtime type; supertypes unknown
	MajorVersion uint16
}

// IsPublic reports whether the type is publicly visible.
func (t *Type) IsPublic() bool { return t.Modifiers.Has(classfile.AccPublic) }

// IsAbstract reports whether the type is abstract (interfaces included).
func (t *Type) IsAbstract() bool { return t.Modifiers.Has(classfile.AccAbstract) }

// IsInterface reports whether the type is an interface or annotation type.
func (t *Type) IsInterface() bool { return t.Modifiers.Has(classfile.AccInterface) }

// IsEnum reports whether the type is an enum type.
func (t *Type) IsEnum() bool { return t.Enum }

// IsSubtypeOf reports whether t is s or transitively extends or implements
// s. The relation is reflexive; callers that need a strict subtype must
// compare identities themselves.
func (t *Type) IsSubtypeOf(s *Type) bool {
	if t == nil || s == nil {
		return false
	}
	seen := make(map[*Type]bool)
	var walk func(x *Type) bool
	walk = func(x *Type) bool {
		if x == nil || seen[x] {
			return false
		}
		if x == s {
			return true
		}
		seen[x] = true
		if walk(x.Super) {
			return true
		}
		for _, iface := range x.Interfaces {
			if walk(iface) {
				return true
			}
		}
		return false
	}
	return walk(t)
}

// OpaqueSupertypes returns the platform stubs among the strict supertypes of
// t, other than java.lang.Object, in name order. Their own supertypes are
// unknown, so t may implement more than IsSubtypeOf can see.
func (t *Type) OpaqueSupertypes() []string {
	seen := map[*Type]bool{t: true}
	var out []string
	var walk func(x *Type)
	walk = func(x *Type) {
		if x == nil || seen[x] {
			return
		}
		seen[x] = true
		if x.Platform && x.Name != "java.lang.Object" {
			out = append(out, x.Name)
		}
		walk(x.Super)
		for _, iface := range x.Interfaces {
			walk(iface)
		}
	}
	walk(t.Super)
	for _, iface := range t.Interfaces {
		walk(iface)
	}
	slices.Sort(out)
	return out
}

func (t *Type) String() string { return t.Name }

// Result is the outcome of resolving one name.
type Result struct {
	Outcome Outcome
	Type    *Type // set only when Outcome is Found
	Err     error // reason for NotFound and Unusable
}

// Option configures a Context.
type Option func(*Context)

// WithPlatformPackages overrides DefaultPlatformPackages. Passing no
// prefixes disables platform stubs entirely.
func WithPlatformPackages(prefixes ...string) Option {
	return func(c *Context) {
		c.platform = prefixes
	}
}

// Context is the resolution context of a single run.
type Context struct {
	cp        *classpath.Classpath
	platform  []string
	cache     map[string]Result
	resolving map[string]bool
}

// NewContext returns a resolution context over cp.
func NewContext(cp *classpath.Classpath, opts ...Option) *Context {
	c := &Context{
		cp:        cp,
		platform:  DefaultPlatformPackages,
		cache:     make(map[string]Result),
		resolving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve loads and links name. Every outcome is cached, so repeated calls
// return the same *Type.
func (c *Context) Resolve(name string) Result {
	if r, ok := c.cache[name]; ok {
		return r
	}
	if c.resolving[name] {
		// not cached: the caller higher up the chain records the failure
		return Result{Outcome: Unusable, Err: fmt.Errorf("%s: %w", name, ErrCircularity)}
	}

	c.resolving[name] = true
	r := c.load(name)
	delete(c.resolving, name)

	c.cache[name] = r
	return r
}

// Len returns the number of cached resolutions.
func (c *Context) Len() int { return len(c.cache) }

// IsPlatform reports whether name lies under a platform package prefix.
func (c *Context) IsPlatform(name string) bool {
	for _, prefix := range c.platform {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (c *Context) load(name string) Result {
	res, err := c.cp.Find(name)
	if errors.Is(err, classpath.ErrNotFound) {
		if c.IsPlatform(name) {
			return Result{Outcome: Found, Type: &Type{
				Name:      name,
				Modifiers: classfile.AccPublic,
				Platform:  true,
			}}
		}
		return Result{Outcome: NotFound, Err: fmt.Errorf("%s: %w", name, ErrNotFound)}
	}
	if err != nil {
		return Result{Outcome: Unusable, Err: err}
	}

	cf, err := classfile.ParseBytes(res.Data)
	if err != nil {
		return Result{Outcome: Unusable, Err: fmt.Errorf("decoding %s from %s: %w", name, res.Entry, err)}
	}
	if cf.IsModule() {
		return Result{Outcome: Unusable, Err: fmt.Errorf("%s: %w", name, ErrModuleDescriptor)}
	}
	if cf.Name != name {
		return Result{Outcome: Unusable, Err: fmt.Errorf("%s in %s: %w (%s)", name, res.Entry, ErrWrongName, cf.Name)}
	}

	t := &Type{
		Name:         name,
		Modifiers:    cf.Modifiers(),
		Anonymous:    cf.IsAnonymous(),
		Enum:         cf.IsEnum(),
		Origin:       res.Entry,
		MajorVersion: cf.MajorVersion,
	}

	if cf.SuperName != "" {
		super, err := c.link(name, cf.SuperName, false)
		if err != nil {
			return Result{Outcome: Unusable, Err: err}
		}
		t.Super = super
	}
	for _, ifaceName := range cf.Interfaces {
		iface, err := c.link(name, ifaceName, true)
		if err != nil {
			return Result{Outcome: Unusable, Err: err}
		}
		t.Interfaces = append(t.Interfaces, iface)
	}

	return Result{Outcome: Found, Type: t}
}

// link resolves a direct supertype of name and checks it has the expected
// kind. Platform stubs are accepted either way since their kind is unknown.
func (c *Context) link(name, super string, wantInterface bool) (*Type, error) {
	r := c.Resolve(super)
	if r.Outcome != Found {
		return nil, &LinkageError{Name: name, Missing: super, Err: r.Err}
	}
	if !r.Type.Platform && r.Type.IsInterface() != wantInterface {
		return nil, &LinkageError{Name: name, Missing: super, Err: ErrIncompatibleSupertype}
	}
	return r.Type, nil
}
