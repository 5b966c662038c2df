package classpath

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jvmtools/svcgen/internal/classfile"
	"github.com/klauspost/compress/zip"
)

// Kind distinguishes directory entries from archive entries.
type Kind int

const (
	KindDirectory Kind = iota
	KindArchive
)

func (k Kind) String() string {
	if k == KindArchive {
		return "archive"
	}
	return "directory"
}

// DefaultArchiveExtensions are the file extensions treated as archives.
var DefaultArchiveExtensions = []string{".jar", ".zip"}

// DefaultMaxOpenArchives bounds how many archives are held open at once.
const DefaultMaxOpenArchives = 64

// ErrNotFound is returned by Find when no entry holds the requested class.
var ErrNotFound = errors.New("class not found on classpath")

// ConfigurationError reports a classpath entry that cannot be turned into a
// usable root.
type ConfigurationError struct {
	Entry string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid classpath entry %q: %v", e.Entry, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Entry is one assembled classpath root.
type Entry struct {
	Path    string // absolute filesystem path
	Kind    Kind
	Locator string // file:///dir/ or jar:file:///x.jar!/
	// Prefix is the directory inside an archive that class resources live
	// under, "classes/" for jmod files and empty otherwise.
	Prefix string
	// Runtime marks entries taken from a Java runtime image.
	Runtime bool
}

func (e Entry) String() string { return e.Locator }

// Resource is a class file located on the classpath.
type Resource struct {
	Name  string // binary name that was requested
	Entry Entry  // entry the class was found in
	Data  []byte
}

// ArchiveErrorFunc is called once for each archive that exists but cannot
// be read. The archive is then treated as empty.
type ArchiveErrorFunc func(entry Entry, err error)

type options struct {
	extensions []string
	maxOpen    int
	onError    ArchiveErrorFunc
	runtime    []Entry
}

// Option configures Assemble.
type Option func(*options)

// WithArchiveExtensions overrides DefaultArchiveExtensions.
func WithArchiveExtensions(exts ...string) Option {
	return func(o *options) {
		if len(exts) > 0 {
			o.extensions = exts
		}
	}
}

// WithMaxOpenArchives overrides DefaultMaxOpenArchives. Values below one are
// ignored.
func WithMaxOpenArchives(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpen = n
		}
	}
}

// WithArchiveErrorHandler registers a callback for unreadable archives.
func WithArchiveErrorHandler(fn ArchiveErrorFunc) Option {
	return func(o *options) { o.onError = fn }
}

// WithRuntime appends runtime image entries, as returned by FindRuntime,
// after every user entry.
func WithRuntime(entries ...Entry) Option {
	return func(o *options) { o.runtime = append(o.runtime, entries...) }
}

// Classpath is an immutable ordered set of entries plus the archives opened
// while searching them. It is meant for a single discovery run and is not
// safe for concurrent use.
type Classpath struct {
	entries  []Entry
	archives *lru.Cache[string, *archive]
	broken   map[string]bool
	onError  ArchiveErrorFunc
}

type archive struct {
	file  *os.File
	index map[string]*zip.File
}

// Assemble turns an ordered list of paths into a Classpath. A path whose
// extension is a recognized archive extension becomes an archive entry;
// every other path becomes a directory entry. Paths are not required to
// exist.
func Assemble(paths []string, opts ...Option) (*Classpath, error) {
	o := options{extensions: DefaultArchiveExtensions, maxOpen: DefaultMaxOpenArchives}
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entry, err := newEntry(p, o.extensions)
		if err != nil {
			return nil, &ConfigurationError{Entry: p, Err: err}
		}
		entries = append(entries, entry)
	}
	entries = append(entries, o.runtime...)

	cache, err := lru.NewWithEvict[string, *archive](o.maxOpen, func(_ string, a *archive) {
		_ = a.file.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating archive cache: %w", err)
	}

	return &Classpath{
		entries:  entries,
		archives: cache,
		broken:   make(map[string]bool),
		onError:  o.onError,
	}, nil
}

func newEntry(path string, extensions []string) (Entry, error) {
	if strings.TrimSpace(path) == "" {
		return Entry{}, errors.New("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return Entry{}, errors.New("path contains a NUL byte")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, fmt.Errorf("resolving absolute path: %w", err)
	}

	kind := KindDirectory
	if isArchive(abs, extensions) {
		kind = KindArchive
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path // windows drive letters
	}
	locator := u.String()
	if kind == KindArchive {
		locator = "jar:" + locator + "!/"
	} else if !strings.HasSuffix(locator, "/") {
		locator += "/"
	}
	if _, err := url.Parse(locator); err != nil {
		return Entry{}, fmt.Errorf("building locator: %w", err)
	}

	return Entry{Path: abs, Kind: kind, Locator: locator}, nil
}

func isArchive(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the assembled entries in search order.
func (cp *Classpath) Entries() []Entry {
	out := make([]Entry, len(cp.entries))
	copy(out, cp.entries)
	return out
}

// Contains reports whether an entry refers to path.
func (cp *Classpath) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, e := range cp.entries {
		if e.Path == abs {
			return true
		}
	}
	return false
}

// Find returns the class file for a binary name from the first entry that
// holds it. It returns ErrNotFound when no entry does. Read failures on a
// located file are returned as errors.
func (cp *Classpath) Find(name string) (*Resource, error) {
	rel := classfile.ResourcePath(name)
	for _, e := range cp.entries {
		var (
			data []byte
			err  error
		)
		switch e.Kind {
		case KindArchive:
			data, err = cp.readArchive(e, rel)
		default:
			data, err = readDirectory(e, rel)
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s from %s: %w", rel, e.Locator, err)
		}
		return &Resource{Name: name, Entry: e, Data: data}, nil
	}
	return nil, ErrNotFound
}

func readDirectory(e Entry, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(e.Path, filepath.FromSlash(rel)))
	// ENOTDIR: the entry is a regular file rather than a directory
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return nil, ErrNotFound
	}
	return data, err
}

func (cp *Classpath) readArchive(e Entry, rel string) ([]byte, error) {
	a, err := cp.openArchive(e)
	if err != nil || a == nil {
		return nil, ErrNotFound
	}
	f, ok := a.index[e.Prefix+rel]
	if !ok {
		return nil, ErrNotFound
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// openArchive returns the cached archive for e, opening it on first use.
// A missing archive yields nil without error; an unreadable one is reported
// to the error handler once and then ignored.
func (cp *Classpath) openArchive(e Entry) (*archive, error) {
	if a, ok := cp.archives.Get(e.Path); ok {
		return a, nil
	}
	if cp.broken[e.Path] {
		return nil, nil
	}

	info, err := os.Stat(e.Path)
	if err != nil || info.IsDir() {
		cp.broken[e.Path] = true
		return nil, nil
	}

	a, err := openZip(e.Path, info.Size())
	if err != nil {
		cp.broken[e.Path] = true
		if cp.onError != nil {
			cp.onError(e, err)
		}
		return nil, err
	}
	cp.archives.Add(e.Path, a)
	return a, nil
}

// openZip opens a zip archive and indexes its files. A jmod file is a
// zip archive behind a four-byte header.
func openZip(path string, size int64) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var offset int64
	head := make([]byte, len(jmodMagic))
	if _, err := io.ReadFull(f, head); err == nil && string(head) == jmodMagic {
		offset = int64(len(jmodMagic))
	}
	zr, err := zip.NewReader(io.NewSectionReader(f, offset, size-offset), size-offset)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a := &archive{file: f, index: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := a.index[f.Name]; !dup {
			a.index[f.Name] = f
		}
	}
	return a, nil
}

// ArchiveEntries returns the number of files inside an archive entry, or an
// error if it cannot be opened.
func (cp *Classpath) ArchiveEntries(e Entry) (int, error) {
	if e.Kind != KindArchive {
		return 0, fmt.Errorf("%s is not an archive", e.Locator)
	}
	a, err := cp.openArchive(e)
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, os.ErrNotExist
	}
	return len(a.index), nil
}

// Close releases every open archive. The Classpath must not be used after
// Close.
func (cp *Classpath) Close() error {
	cp.archives.Purge()
	return nil
}
