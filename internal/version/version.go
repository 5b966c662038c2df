// Package version holds build metadata and compares svcgen versions against
// the semver constraints that project manifests declare in "requires".
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Dev is the version reported by builds without release metadata.
const Dev = "dev"

// ErrUnsatisfied is returned when the running version does not satisfy a
// manifest constraint.
var ErrUnsatisfied = errors.New("version constraint not satisfied")

// Info describes the running binary.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// IsDev reports whether v is a development build.
func IsDev(v string) bool {
	return v == "" || v == Dev || strings.HasPrefix(v, Dev+"-")
}

// CompareVersions compares two version strings using semver.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// Handles "v" prefix tolerance (strips leading "v" before parsing).
func CompareVersions(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return av.Compare(bv), nil
}

// Parse strips a leading "v" and parses the version string.
func Parse(v string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(v, "v"))
}

// Check reports whether current satisfies constraint. An empty constraint
// and development builds always pass.
func Check(constraint, current string) error {
	if strings.TrimSpace(constraint) == "" || IsDev(current) {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("parsing constraint %q: %w", constraint, err)
	}
	v, err := Parse(current)
	if err != nil {
		return fmt.Errorf("parsing version %q: %w", current, err)
	}
	if ok, errs := c.Validate(v); !ok {
		reasons := make([]string, 0, len(errs))
		for _, e := range errs {
			reasons = append(reasons, e.Error())
		}
		return fmt.Errorf("%w: svcgen %s does not match %q (%s)", ErrUnsatisfied, current, constraint, strings.Join(reasons, "; "))
	}
	return nil
}

// IsUpdateAvailable returns true if latest is newer than current.
func IsUpdateAvailable(current, latest string) (bool, error) {
	cmp, err := CompareVersions(current, latest)
	if err != nil {
		return false, err
	}
	return cmp == -1, nil
}
