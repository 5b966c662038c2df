package discovery

import "github.com/jvmtools/svcgen/internal/resolve"

// Eligible reports whether a resolved candidate may be listed as a service
// implementation at all: it must be public and concrete, and must not be an
// interface, an enum or an anonymous class.
func Eligible(t *resolve.Type) bool {
	switch {
	case t == nil:
		return false
	case !t.IsPublic(), t.IsAbstract(), t.IsInterface():
		return false
	case t.IsEnum(), t.Anonymous:
		return false
	}
	return true
}

// Assignable reports whether candidate implements or extends service. A
// type is never its own implementation.
func Assignable(candidate, service *resolve.Type) bool {
	return candidate != service && candidate.IsSubtypeOf(service)
}

// matchServices returns the indexes of the services candidate is assignable
// to. Ineligible candidates match nothing.
func matchServices(candidate *resolve.Type, services []*resolve.Type) []int {
	if !Eligible(candidate) {
		return nil
	}
	var idx []int
	for i, s := range services {
		if Assignable(candidate, s) {
			idx = append(idx, i)
		}
	}
	return idx
}
