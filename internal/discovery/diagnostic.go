package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError marks a broken class file in the build output. The run
	// still completes without it.
	SeverityError Severity = "error"
)

const (
	// CodeServiceUnresolved marks a declared service dropped from the run.
	CodeServiceUnresolved DiagnosticCode = "service_unresolved"
	// CodeCandidateSkipped marks a scanned class that could not be resolved.
	CodeCandidateSkipped DiagnosticCode = "candidate_skipped"
	// CodeArchiveUnreadable marks a classpath archive that could not be opened.
	CodeArchiveUnreadable DiagnosticCode = "archive_unreadable"
	// CodeRuntimeUnavailable marks a JavaHome without class archives.
	CodeRuntimeUnavailable DiagnosticCode = "runtime_unavailable"
	// CodePlatformSupertypeOpaque marks a candidate whose platform supertypes
	// could not be followed, so a platform service match may be missing.
	CodePlatformSupertypeOpaque DiagnosticCode = "platform_supertype_opaque"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic describes a condition that was recovered from during a run.
	// Diagnostics are returned to the caller so the CLI decides how to
	// render them.
	Diagnostic struct {
		Severity Severity
		Code     DiagnosticCode
		Message  string
		// Name is the class or classpath entry the diagnostic is about.
		Name string
		// Cause is the underlying error, if any.
		Cause error
	}
)

func (d Diagnostic) String() string {
	if d.Cause != nil {
		return string(d.Severity) + ": " + d.Message + ": " + d.Cause.Error()
	}
	return string(d.Severity) + ": " + d.Message
}

// CountCode returns how many diagnostics carry code.
func CountCode(diags []Diagnostic, code DiagnosticCode) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}
