// Package discovery finds the implementations of declared service types
// among the classes of a compiled output directory.
//
// A run assembles the classpath, resolves every declared service, scans the
// classes directory for candidates, keeps the eligible candidates that are
// strict subtypes of a service, applies the include and exclude selectors,
// and returns a ServiceImplementationSet for a provider-file writer.
//
// File organization:
//   - discovery.go: Request, Result and Run
//   - matcher.go: eligibility and assignability predicates
//   - filter.go: include/exclude selector patterns
//   - builder.go: ServiceImplementationSet construction
//   - errors.go, diagnostic.go: fatal errors and recoverable diagnostics
package discovery
