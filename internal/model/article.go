package model

import "time"

// ArticleCandidate is a discovered article awaiting extraction. It lives
// for one crawl run and is discarded once extraction has produced (or
// declined to produce) a record.
type ArticleCandidate struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	RawContent  string    `json:"raw_content"`
	PublishedAt time.Time `json:"published_at"`
}

// ExtractedRecord is the structured output of the extraction engine for a
// single article. Immutable once produced; CompanyName is required and an
// article that yields none produces no record at all.
type ExtractedRecord struct {
	CompanyName          string `json:"company_name"`
	FundingStage         string `json:"funding_stage,omitempty"`
	AmountRaised         string `json:"amount_raised,omitempty"`
	DateRaised           string `json:"date_raised,omitempty"`
	Location             string `json:"location,omitempty"`
	Industry             string `json:"industry,omitempty"`
	BusinessType         string `json:"business_type,omitempty"`
	Website              string `json:"website,omitempty"`
	Description          string `json:"description,omitempty"`
	SourceArticleURL     string `json:"source_article_url"`
	SourceArticleContent string `json:"-"`
}
