// Package testutil synthesises compiled Java classes and jar archives for
// tests, so discovery can be exercised without a JDK on the test machine.
package testutil
