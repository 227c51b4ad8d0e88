package model

import "time"

// QASeverity classifies a QA issue. Only error severity blocks release.
type QASeverity string

const (
	SeverityError   QASeverity = "error"
	SeverityWarning QASeverity = "warning"
)

// QAIssue is one finding from a single QA gate.
type QAIssue struct {
	Gate     string     `json:"gate"`
	Severity QASeverity `json:"severity"`
	Message  string     `json:"message"`
	Location string     `json:"location,omitempty"`
}

// QAResult is the combined outcome of one validation attempt. Never
// mutated; each attempt produces a new instance.
type QAResult struct {
	Passed    bool      `json:"passed"`
	Issues    []QAIssue `json:"issues"`
	CheckedAt time.Time `json:"checkedAt"`
	Attempt   int       `json:"attemptNumber"`
}

// ErrorCount returns the number of error-severity issues.
func (r QAResult) ErrorCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}
