// Package release tells users when a newer svcgen release is published.
// The latest release is looked up on GitHub at most once a day, in the
// background, and remembered as a Notice in the svcgen home directory.
package release
