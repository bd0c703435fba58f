// Package model defines the core types shared across the ingestion pipeline.
package model

import "time"

// EnrichmentStatus tracks a record's position in the enrichment state machine.
type EnrichmentStatus string

const (
	EnrichmentPending     EnrichmentStatus = "pending"
	EnrichmentInProgress  EnrichmentStatus = "in_progress"
	EnrichmentCompleted   EnrichmentStatus = "completed"
	EnrichmentNeedsReview EnrichmentStatus = "needs_review"
	EnrichmentFailed      EnrichmentStatus = "failed"
)

// QualityStatus is the tier assigned by the quality assessor.
type QualityStatus string

const (
	QualityExcellent QualityStatus = "excellent"
	QualityGood      QualityStatus = "good"
	QualityFair      QualityStatus = "fair"
	QualityPoor      QualityStatus = "poor"
	QualityFailed    QualityStatus = "failed"
)

// StartupRecord is the persisted golden record for a funding event.
// SourceArticleURL is the dedup key: a second candidate for the same URL
// is a no-op at insert time. Once a field holds a non-empty value it is
// never overwritten by a later enrichment pass; only status, quality and
// explicitly-targeted empty fields are mutable after creation.
type StartupRecord struct {
	ID               string `json:"id" db:"id"`
	Name             string `json:"name" db:"name"`
	Website          string `json:"website,omitempty" db:"website"`
	FounderNames     string `json:"founder_names,omitempty" db:"founder_names"`
	FounderFirstName string `json:"founder_first_name,omitempty" db:"founder_first_name"`
	FounderLastName  string `json:"founder_last_name,omitempty" db:"founder_last_name"`
	FounderEmails    string `json:"founder_emails,omitempty" db:"founder_emails"`
	FounderLinkedIn  string `json:"founder_linkedin,omitempty" db:"founder_linkedin"`
	Location         string `json:"location,omitempty" db:"location"`
	Industry         string `json:"industry,omitempty" db:"industry"`
	Description      string `json:"description,omitempty" db:"description"`
	FundingAmount    string `json:"funding_amount,omitempty" db:"funding_amount"`
	FundingStage     string `json:"funding_stage,omitempty" db:"funding_stage"`
	JobPostings      string `json:"job_postings,omitempty" db:"job_postings"`
	SourceArticleURL string `json:"source_article_url" db:"source_article_url"`
	DataSource       string `json:"data_source,omitempty" db:"data_source"`

	NeedsEnrichment    bool             `json:"needs_enrichment" db:"needs_enrichment"`
	EnrichmentStatus   EnrichmentStatus `json:"enrichment_status" db:"enrichment_status"`
	EnrichmentAttempts int              `json:"enrichment_attempts" db:"enrichment_attempts"`
	QualityScore       float64          `json:"quality_score" db:"quality_score"`
	QualityStatus      QualityStatus    `json:"quality_status,omitempty" db:"quality_status"`
	VectorID           string           `json:"vector_id,omitempty" db:"vector_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FieldValue is a single enrichment finding for one record field, carrying
// the extraction confidence used by the merger and quality assessor.
type FieldValue struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Field keys understood by the merger and the quality assessor. Keys
// without a dedicated column (job postings, tech stack, ...) still count
// toward the quality score but are persisted only where a column exists.
const (
	FieldFounderNames      = "founder_names"
	FieldFounderLinkedIn   = "founder_linkedin"
	FieldFounderEmails     = "founder_emails"
	FieldWebsite           = "website"
	FieldDescription       = "description"
	FieldJobPostings       = "job_postings"
	FieldFundingAmount     = "funding_amount"
	FieldFundingStage      = "funding_stage"
	FieldLocation          = "location"
	FieldIndustry          = "industry"
	FieldTechStack         = "tech_stack"
	FieldTargetCustomer    = "target_customer"
	FieldMarketVertical    = "market_vertical"
	FieldTeamSize          = "team_size"
	FieldFounderBackground = "founder_background"
)
