// Package validate checks a desired fleet configuration for mistakes that
// would make a sync write wrong or colliding metadata.
package validate

// Severity indicates the importance level of an issue.
type Severity int

const (
	// SeverityInfo is worth knowing but harmless.
	SeverityInfo Severity = iota
	// SeverityWarning will sync but probably is not what was meant.
	SeverityWarning
	// SeverityError makes the affected device fail to sync or corrupts another
	// device's metadata.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue is a single problem found in the configuration.
type Issue struct {
	Device   string   // device key
	Stream   string   // stream name, empty for device-level issues
	Severity Severity // issue severity level
	Rule     string   // rule identifier, e.g. "duplicate-uuid"
	Message  string
}

// Result contains all issues found.
type Result struct {
	Issues  []Issue
	Devices int
	Streams int
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}
