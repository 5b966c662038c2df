package discovery

import (
	"github.com/bmatcuk/doublestar/v4"
)

// Filter applies include and exclude selector patterns to binary names.
// Patterns are globs matched against the whole dotted name. Binary names
// contain no slash, so "*" and "**" both match any run of characters.
type Filter struct {
	includes []string
	excludes []string
}

// NewFilter validates every pattern and returns a Filter. An invalid
// pattern yields a *PatternError.
func NewFilter(includes, excludes []string) (*Filter, error) {
	for _, p := range includes {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Kind: "include", Pattern: p, Err: doublestar.ErrBadPattern}
		}
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Kind: "exclude", Pattern: p, Err: doublestar.ErrBadPattern}
		}
	}
	return &Filter{includes: includes, excludes: excludes}, nil
}

// Allows reports whether name survives both passes: it matches some
// include (or there are none) and matches no exclude.
func (f *Filter) Allows(name string) bool {
	if f == nil {
		return true
	}
	if len(f.includes) > 0 && !matchAny(f.includes, name) {
		return false
	}
	return !matchAny(f.excludes, name)
}

// Apply returns the names that Allows keeps, in their original order.
func (f *Filter) Apply(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if f.Allows(n) {
			out = append(out, n)
		}
	}
	return out
}

// Empty reports whether the filter has no patterns at all.
func (f *Filter) Empty() bool {
	return f == nil || len(f.includes) == 0 && len(f.excludes) == 0
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// patterns were validated in NewFilter
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
