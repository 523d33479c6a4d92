package core

// ValidationIssue is a single problem reported by semantic layer validation.
type ValidationIssue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// ValidationResult is the outcome of validating the semantic configuration.
// A failed validation is a normal result, not an error.
type ValidationResult struct {
	Valid  bool              `json:"valid" yaml:"valid"`
	Issues []ValidationIssue `json:"issues" yaml:"issues"`
}

// Count returns how many issues carry the given severity.
func (r *ValidationResult) Count(sev Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}
