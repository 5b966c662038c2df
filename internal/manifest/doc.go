// Package manifest handles parsing and validation of svcgen project
// manifests (svcgen.yaml). A manifest declares the service types to
// generate provider files for, the compiled classes directory, the
// classpath, and the include/exclude selectors. Manifests are validated
// against an embedded JSON Schema before they are decoded.
package manifest
