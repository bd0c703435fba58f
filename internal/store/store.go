package store

import (
	"context"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// Stats summarizes the pipeline's persisted state.
type Stats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByQuality     map[string]int `json:"by_quality"`
	WithEmails    int            `json:"with_emails"`
	WithVectors   int            `json:"with_vectors"`
	NeedingReview int            `json:"needing_review"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Startups
	InsertStartup(ctx context.Context, rec *model.StartupRecord) (created bool, err error)
	GetStartupByURL(ctx context.Context, sourceURL string) (*model.StartupRecord, error)
	KnownSourceURLs(ctx context.Context) (map[string]bool, error)
	ListNeedingEnrichment(ctx context.Context, limit int) ([]model.StartupRecord, error)
	ListMissingEmails(ctx context.Context, limit int) ([]model.StartupRecord, error)
	ListMissingVectors(ctx context.Context, limit int) ([]model.StartupRecord, error)

	// Fill-only-empty field updates. Populated columns are never replaced.
	FillEmptyFields(ctx context.Context, id string, fields map[string]string) error

	// Status transitions
	SetEnrichmentState(ctx context.Context, id string, status model.EnrichmentStatus, attempts int) error
	SetQuality(ctx context.Context, id string, score float64, quality model.QualityStatus, status model.EnrichmentStatus) error
	SetFounderEmail(ctx context.Context, id, email string) error
	SetVectorID(ctx context.Context, id, vectorID string) error

	// ClearNeedsEnrichment takes a record out of the enrichment queue
	// without touching its status, used when the retry budget runs out.
	ClearNeedsEnrichment(ctx context.Context, id string) error

	// Reporting
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
