// Package store persists scans, listing snapshots, signals, briefs and
// reviewer decisions. Two implementations exist: SQLite for local use
// and Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/sells-group/market-scan/internal/model"
)

// ScanFilter specifies criteria for listing scans.
type ScanFilter struct {
	Status  model.ScanStatus `json:"status,omitempty"`
	Keyword string           `json:"keyword,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// BriefRecord is one persisted generation attempt with its QA outcome.
type BriefRecord struct {
	ScanID    string                      `json:"scan_id"`
	Attempt   int                         `json:"attempt"`
	Brief     *model.DifferentiationBrief `json:"brief"`
	QA        *model.QAResult             `json:"qa"`
	CreatedAt time.Time                   `json:"created_at"`
}

// Store defines the persistence interface for the scan pipeline. All
// writes keyed by scan id are idempotent upserts so a crashed scan can
// be re-driven without duplicating rows.
type Store interface {
	// Scans
	CreateScan(ctx context.Context, keyword string, opts model.ScanOptions) (*model.Scan, error)
	UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error
	MarkScanError(ctx context.Context, scanID string, message string) error
	GetScan(ctx context.Context, scanID string) (*model.Scan, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error)

	// Listing snapshots
	SaveScanListings(ctx context.Context, scanID string, listings []model.Listing) error
	GetScanListings(ctx context.Context, scanID string) ([]model.Listing, error)

	// Signals
	SaveSignals(ctx context.Context, scanID string, signals *model.SignalsResult) error
	GetSignals(ctx context.Context, scanID string) (*model.SignalsResult, error)

	// Briefs and QA, one row per attempt
	SaveBrief(ctx context.Context, rec BriefRecord) error
	GetLatestBrief(ctx context.Context, scanID string) (*BriefRecord, error)

	// Reviewer decisions
	SaveDecision(ctx context.Context, d model.Decision) error
	GetDecision(ctx context.Context, scanID string) (*model.Decision, error)

	// Listing cache keyed by keyword, entries expire after the TTL
	GetCachedListings(ctx context.Context, keyword string) ([]model.Listing, error)
	SetCachedListings(ctx context.Context, keyword string, listings []model.Listing, ttl time.Duration) error
	DeleteExpiredListings(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
