package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/quality"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/internal/store"
)

// Orchestrator drives records through the enrichment state machine.
// Each record enters in_progress before any lookup runs, so a crash
// leaves an honest status behind.
type Orchestrator struct {
	store       store.Store
	merger      *record.Merger
	lookups     []Lookup
	recordDelay time.Duration
}

// BatchReport summarizes one enrichment batch.
type BatchReport struct {
	Processed   int
	Completed   int
	NeedsReview int
	Failed      int
	Skipped     int
}

func NewOrchestrator(s store.Store, m *record.Merger, lookups []Lookup, recordDelay time.Duration) *Orchestrator {
	return &Orchestrator{store: s, merger: m, lookups: lookups, recordDelay: recordDelay}
}

// RunBatch enriches up to limit records sequentially with a fixed delay
// between records. Records whose retry budget is spent are dropped from
// the queue and counted as skipped. A failing record never stops the
// batch.
func (o *Orchestrator) RunBatch(ctx context.Context, limit int) (*BatchReport, error) {
	recs, err := o.store.ListNeedingEnrichment(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list records")
	}

	report := &BatchReport{}
	for i := range recs {
		rec := &recs[i]
		if i > 0 && o.recordDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(o.recordDelay):
			}
		}

		if !o.eligible(rec) {
			if err := o.store.ClearNeedsEnrichment(ctx, rec.ID); err != nil {
				zap.L().Warn("enrich: dequeue failed", zap.String("id", rec.ID), zap.Error(err))
			}
			zap.L().Info("enrich: retry budget spent, leaving for review",
				zap.String("id", rec.ID),
				zap.String("name", rec.Name),
				zap.Int("attempts", rec.EnrichmentAttempts),
			)
			report.Skipped++
			continue
		}

		report.Processed++
		status := o.enrichOne(ctx, rec)
		switch status {
		case model.EnrichmentCompleted:
			report.Completed++
		case model.EnrichmentNeedsReview:
			report.NeedsReview++
		default:
			report.Failed++
		}
	}

	zap.L().Info("enrich: batch done",
		zap.Int("processed", report.Processed),
		zap.Int("completed", report.Completed),
		zap.Int("needs_review", report.NeedsReview),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// eligible applies the retry rules to a record's last assessment.
// Pending records have not been assessed and failed records always get
// another pass.
func (o *Orchestrator) eligible(rec *model.StartupRecord) bool {
	switch rec.EnrichmentStatus {
	case model.EnrichmentPending, model.EnrichmentFailed:
		return true
	}
	prior := quality.Assessment{
		Quality:         rec.QualityStatus,
		MissingCritical: missingCritical(rec),
	}
	return quality.RetryEligible(prior, rec.EnrichmentAttempts)
}

// enrichOne runs one record through lookups, merge and assessment and
// persists the resulting status. It always returns the status it
// persisted, EnrichmentFailed when infrastructure gave out mid-pass.
func (o *Orchestrator) enrichOne(ctx context.Context, rec *model.StartupRecord) model.EnrichmentStatus {
	attempts := rec.EnrichmentAttempts + 1
	if err := o.store.SetEnrichmentState(ctx, rec.ID, model.EnrichmentInProgress, attempts); err != nil {
		zap.L().Error("enrich: mark in_progress failed", zap.String("id", rec.ID), zap.Error(err))
		return model.EnrichmentFailed
	}

	missing := missingFields(rec)
	var findings []model.FieldValue
	for _, l := range o.lookups {
		if !servesAny(l, missing) {
			continue
		}
		vals, err := l.Lookup(ctx, rec)
		if err != nil {
			zap.L().Warn("enrich: lookup failed",
				zap.String("lookup", l.Name()),
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		for _, fv := range vals {
			if missing[fv.Key] {
				findings = append(findings, fv)
			}
		}
	}

	if err := o.merger.FillEmpty(ctx, rec.ID, findings); err != nil {
		return o.fail(ctx, rec.ID, attempts, eris.Wrap(err, "enrich: merge findings"))
	}
	fresh, err := o.store.GetStartupByURL(ctx, rec.SourceArticleURL)
	if err != nil || fresh == nil {
		return o.fail(ctx, rec.ID, attempts, eris.Wrap(err, "enrich: reload record"))
	}

	a := quality.Assess(fresh, findings)
	if err := o.store.SetQuality(ctx, rec.ID, a.Score, a.Quality, a.Status); err != nil {
		return o.fail(ctx, rec.ID, attempts, eris.Wrap(err, "enrich: persist assessment"))
	}
	if a.Status != model.EnrichmentCompleted && !quality.RetryEligible(a, attempts) {
		if err := o.store.ClearNeedsEnrichment(ctx, rec.ID); err != nil {
			zap.L().Warn("enrich: dequeue failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}

	zap.L().Info("enrich: record assessed",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.Float64("score", a.Score),
		zap.String("quality", string(a.Quality)),
		zap.String("status", string(a.Status)),
		zap.Int("attempts", attempts),
	)
	return a.Status
}

func (o *Orchestrator) fail(ctx context.Context, id string, attempts int, err error) model.EnrichmentStatus {
	zap.L().Error("enrich: pass failed", zap.String("id", id), zap.Error(err))
	if serr := o.store.SetEnrichmentState(ctx, id, model.EnrichmentFailed, attempts); serr != nil {
		zap.L().Error("enrich: mark failed failed", zap.String("id", id), zap.Error(serr))
	}
	return model.EnrichmentFailed
}

// missingFields reports which field keys still need a value. Keys with
// no backing column are always considered missing since they only feed
// the per-pass assessment. A placeholder role address counts as no email.
func missingFields(rec *model.StartupRecord) map[string]bool {
	missing := map[string]bool{
		model.FieldTechStack:         true,
		model.FieldTargetCustomer:    true,
		model.FieldMarketVertical:    true,
		model.FieldTeamSize:          true,
		model.FieldFounderBackground: true,
	}
	stored := map[string]string{
		model.FieldFounderNames:    rec.FounderNames,
		model.FieldFounderLinkedIn: rec.FounderLinkedIn,
		model.FieldWebsite:         rec.Website,
		model.FieldDescription:     rec.Description,
		model.FieldJobPostings:     rec.JobPostings,
		model.FieldFundingAmount:   rec.FundingAmount,
		model.FieldFundingStage:    rec.FundingStage,
		model.FieldLocation:        rec.Location,
		model.FieldIndustry:        rec.Industry,
	}
	for key, val := range stored {
		if val == "" {
			missing[key] = true
		}
	}
	if rec.FounderEmails == "" || record.IsPlaceholderEmail(rec.FounderEmails) {
		missing[model.FieldFounderEmails] = true
	}
	return missing
}

func missingCritical(rec *model.StartupRecord) []string {
	var out []string
	if rec.FounderNames == "" {
		out = append(out, model.FieldFounderNames)
	}
	if rec.Website == "" {
		out = append(out, model.FieldWebsite)
	}
	if rec.Description == "" {
		out = append(out, model.FieldDescription)
	}
	return out
}

func servesAny(l Lookup, missing map[string]bool) bool {
	for _, f := range l.Fields() {
		if missing[f] {
			return true
		}
	}
	return false
}
