package discovery

import (
	"errors"
	"fmt"

	"github.com/jvmtools/svcgen/internal/resolve"
)

var (
	// ErrNoServices is returned when a request declares no service types.
	ErrNoServices = errors.New("no service types declared")
	// ErrNoClassesDir is returned when a request names no classes directory.
	ErrNoClassesDir = errors.New("no classes directory given")
)

// PatternError reports an include or exclude selector that is not a valid
// glob.
type PatternError struct {
	Kind    string // "include" or "exclude"
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// ServiceTypeResolutionError reports a declared service type that could not
// be resolved while missing services are fatal.
type ServiceTypeResolutionError struct {
	Service string
	Outcome resolve.Outcome
	Err     error
}

func (e *ServiceTypeResolutionError) Error() string {
	return fmt.Sprintf("service type %s is %s: %v", e.Service, e.Outcome, e.Err)
}

func (e *ServiceTypeResolutionError) Unwrap() error { return e.Err }
