// Package record turns extraction and enrichment output into persisted
// startup records. Inserts are keyed by source article URL and a second
// candidate for the same URL is skipped, not an error. After insert a
// field only ever moves from empty to populated.
package record

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/store"
)

// Outcome reports what an insert attempt did.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
)

// fieldColumns maps merger field keys to their startups columns. Keys
// without an entry score in quality assessment but are not persisted.
var fieldColumns = map[string]string{
	model.FieldFounderNames:    "founder_names",
	model.FieldFounderLinkedIn: "founder_linkedin",
	model.FieldFounderEmails:   "founder_emails",
	model.FieldWebsite:         "website",
	model.FieldDescription:     "description",
	model.FieldJobPostings:     "job_postings",
	model.FieldFundingAmount:   "funding_amount",
	model.FieldFundingStage:    "funding_stage",
	model.FieldLocation:        "location",
	model.FieldIndustry:        "industry",
}

// genericMailboxes are role-account local parts. A guessed address like
// hello@domain carries no founder identity, so it is never written and
// an incoming one counts as empty.
var genericMailboxes = map[string]bool{
	"hello": true, "info": true, "team": true, "contact": true,
	"founders": true, "support": true, "admin": true, "office": true,
	"press": true, "sales": true,
}

// IsPlaceholderEmail reports whether an address is a generic role
// mailbox rather than a personal founder address.
func IsPlaceholderEmail(addr string) bool {
	local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(addr)), "@")
	if !ok {
		return false
	}
	return genericMailboxes[local]
}

// Merger writes extraction results and enrichment findings to the store.
type Merger struct {
	store store.Store
}

func NewMerger(s store.Store) *Merger {
	return &Merger{store: s}
}

// FromExtraction builds an insertable record from extraction output.
// dataSource names the crawl origin, e.g. "techcrunch".
func FromExtraction(ex *model.ExtractedRecord, dataSource string) *model.StartupRecord {
	industry := ex.Industry
	if industry == "" {
		industry = ex.BusinessType
	}
	return &model.StartupRecord{
		Name:             ex.CompanyName,
		Website:          ex.Website,
		Location:         ex.Location,
		Industry:         industry,
		Description:      ex.Description,
		FundingAmount:    ex.AmountRaised,
		FundingStage:     ex.FundingStage,
		SourceArticleURL: ex.SourceArticleURL,
		DataSource:       dataSource,
		NeedsEnrichment:  true,
		EnrichmentStatus: model.EnrichmentPending,
	}
}

// Merge inserts the record. A record already stored under the same
// source article URL leaves the stored row untouched and returns
// OutcomeSkipped.
func (m *Merger) Merge(ctx context.Context, rec *model.StartupRecord) (Outcome, error) {
	created, err := m.store.InsertStartup(ctx, rec)
	if err != nil {
		return "", err
	}
	if !created {
		zap.L().Debug("record: duplicate source url skipped",
			zap.String("url", rec.SourceArticleURL),
			zap.String("name", rec.Name),
		)
		return OutcomeSkipped, nil
	}
	zap.L().Info("record: startup created",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("url", rec.SourceArticleURL),
	)
	return OutcomeCreated, nil
}

// FillEmpty applies enrichment findings to a stored record. Each value
// lands only in a column that is currently empty; populated columns keep
// their stored value. Findings for keys without a column, blank values
// and placeholder emails are dropped. The first finding per column wins
// when findings repeat a key.
func (m *Merger) FillEmpty(ctx context.Context, id string, findings []model.FieldValue) error {
	fields := make(map[string]string)
	for _, fv := range findings {
		val := strings.TrimSpace(fv.Value)
		if val == "" {
			continue
		}
		col, ok := fieldColumns[fv.Key]
		if !ok {
			continue
		}
		if fv.Key == model.FieldFounderEmails && IsPlaceholderEmail(val) {
			continue
		}
		if _, dup := fields[col]; dup {
			continue
		}
		fields[col] = val

		if fv.Key == model.FieldFounderNames {
			first, last := SplitFounderName(val)
			if first != "" {
				fields["founder_first_name"] = first
			}
			if last != "" {
				fields["founder_last_name"] = last
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return m.store.FillEmptyFields(ctx, id, fields)
}

// SplitFounderName takes the first founder from a comma or ampersand
// separated list and splits it into first and last name. A single-word
// name yields only a first name.
func SplitFounderName(names string) (first, last string) {
	name := names
	for _, sep := range []string{",", " and ", "&"} {
		if head, _, ok := strings.Cut(name, sep); ok {
			name = head
		}
	}
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	return first, last
}
