// Package cli defines the Cobra command tree for the svcgen CLI. Each file
// in this package registers one top-level command (generate, check, watch,
// etc.) with the root command. Commands delegate discovery and writing to
// internal packages and only handle flag parsing, output formatting and
// exit status.
package cli
