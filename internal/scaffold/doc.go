// Package scaffold writes a starter svcgen.yaml for a project. It powers the
// "svcgen init" command: it guesses the compiled classes directory from the
// build layout it finds, renders the embedded manifest template and checks
// the result against the manifest schema.
package scaffold
