package model

import "time"

// ScanStatus represents the lifecycle state of a scan. The terminal states
// (complete, needs_review, error) are permanent for that scan.
type ScanStatus string

const (
	ScanStatusQueued      ScanStatus = "queued"
	ScanStatusFetching    ScanStatus = "fetching"
	ScanStatusAnalyzing   ScanStatus = "analyzing"
	ScanStatusDrafting    ScanStatus = "drafting"
	ScanStatusComplete    ScanStatus = "complete"
	ScanStatusNeedsReview ScanStatus = "needs_review"
	ScanStatusError       ScanStatus = "error"
)

// Terminal reports whether the status is one of the permanent end states.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusComplete, ScanStatusNeedsReview, ScanStatusError:
		return true
	}
	return false
}

// ScanOptions configures a single scan request.
type ScanOptions struct {
	SampleSize     int  `json:"sample_size"`
	IncludeReviews bool `json:"include_reviews"`
	ForceRefresh   bool `json:"force_refresh"`
}

// Scan is the aggregate root: one keyword analysis request and its
// lifecycle. State transitions are owned exclusively by the orchestrator.
type Scan struct {
	ID           string      `json:"id"`
	Keyword      string      `json:"keyword"`
	Options      ScanOptions `json:"options"`
	Status       ScanStatus  `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ProgressEvent is a best-effort progress update published on a per-scan
// topic. Progress is -1 when not applicable.
type ProgressEvent struct {
	Phase        ScanStatus `json:"phase"`
	Message      string     `json:"message"`
	Progress     int        `json:"progress"` // 0–100
	ListingCount int        `json:"listing_count,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
}

// DecisionValue is a reviewer's verdict on a finished scan.
type DecisionValue string

const (
	DecisionBuild DecisionValue = "build"
	DecisionKill  DecisionValue = "kill"
	DecisionHold  DecisionValue = "hold"
)

// Decision records reviewer feedback against a completed or needs-review
// scan. It never re-enters the scan state machine.
type Decision struct {
	ScanID    string        `json:"scan_id"`
	Decision  DecisionValue `json:"decision"`
	Notes     string        `json:"notes,omitempty"`
	DecidedAt time.Time     `json:"decided_at"`
}
