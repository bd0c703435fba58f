// Package quality scores enrichment completeness and drives the retry
// decision for each record.
package quality

import (
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// Field tiers. A field counts toward the score only when its confidence
// meets the tier threshold; the tier weights sum to 1 so the score stays
// in [0, 1].
var (
	criticalFields = []string{
		model.FieldFounderNames,
		model.FieldWebsite,
		model.FieldDescription,
	}
	importantFields = []string{
		model.FieldFounderLinkedIn,
		model.FieldFounderEmails,
		model.FieldJobPostings,
		model.FieldFundingAmount,
		model.FieldLocation,
		model.FieldIndustry,
	}
	optionalFields = []string{
		model.FieldTechStack,
		model.FieldTargetCustomer,
		model.FieldMarketVertical,
		model.FieldTeamSize,
		model.FieldFounderBackground,
		model.FieldFundingStage,
	}
)

const (
	weightCritical  = 0.5
	weightImportant = 0.3
	weightOptional  = 0.2

	confCritical  = 0.7
	confImportant = 0.6
	confOptional  = 0.5

	maxAttemptsPoor = 3
	maxAttemptsFair = 2
)

// Assessment is the scored outcome for one record after an enrichment
// pass.
type Assessment struct {
	Score           float64
	Quality         model.QualityStatus
	Status          model.EnrichmentStatus
	MissingCritical []string
}

// Assess scores a record against its enrichment findings. Values already
// stored on the record count as present at full confidence; findings
// contribute at their own confidence. A panic during assessment yields a
// failed assessment instead of propagating.
func Assess(rec *model.StartupRecord, findings []model.FieldValue) (a Assessment) {
	var id string
	if rec != nil {
		id = rec.ID
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("quality: assessment panicked",
				zap.String("id", id),
				zap.Any("panic", r),
			)
			a = Assessment{Quality: model.QualityFailed, Status: model.EnrichmentFailed}
		}
	}()

	conf := fieldConfidences(rec, findings)

	criticalScore, missing := tierScore(conf, criticalFields, confCritical)
	importantScore, _ := tierScore(conf, importantFields, confImportant)
	optionalScore, _ := tierScore(conf, optionalFields, confOptional)

	a.Score = weightCritical*criticalScore + weightImportant*importantScore + weightOptional*optionalScore
	a.MissingCritical = missing
	a.Quality = qualityFor(a.Score)
	a.Status = StatusFor(a.Quality)
	return a
}

// tierScore returns the fraction of tier fields present at or above the
// confidence threshold, plus the fields that fell short.
func tierScore(conf map[string]float64, fields []string, threshold float64) (float64, []string) {
	var present int
	var missing []string
	for _, f := range fields {
		if conf[f] >= threshold {
			present++
		} else {
			missing = append(missing, f)
		}
	}
	return float64(present) / float64(len(fields)), missing
}

func qualityFor(score float64) model.QualityStatus {
	switch {
	case score >= 0.8:
		return model.QualityExcellent
	case score >= 0.6:
		return model.QualityGood
	case score >= 0.4:
		return model.QualityFair
	case score >= 0.2:
		return model.QualityPoor
	default:
		return model.QualityFailed
	}
}

// StatusFor maps a quality tier to the enrichment status persisted with
// it.
func StatusFor(q model.QualityStatus) model.EnrichmentStatus {
	switch q {
	case model.QualityExcellent, model.QualityGood:
		return model.EnrichmentCompleted
	case model.QualityFair, model.QualityPoor:
		return model.EnrichmentNeedsReview
	default:
		return model.EnrichmentFailed
	}
}

// RetryEligible reports whether a record should re-enter enrichment
// given its latest assessment and how many attempts it has consumed.
// Failed records always retry. Poor records retry while under the
// attempt cap. Fair records retry only while a critical field is still
// missing and the tighter cap allows. Good and excellent never retry.
func RetryEligible(a Assessment, attempts int) bool {
	switch a.Quality {
	case model.QualityFailed:
		return true
	case model.QualityPoor:
		return attempts < maxAttemptsPoor
	case model.QualityFair:
		return len(a.MissingCritical) > 0 && attempts < maxAttemptsFair
	default:
		return false
	}
}

// fieldConfidences folds the record's stored columns and the pass's
// findings into one confidence per field key, keeping the highest.
func fieldConfidences(rec *model.StartupRecord, findings []model.FieldValue) map[string]float64 {
	conf := make(map[string]float64)

	stored := map[string]string{
		model.FieldFounderNames:    rec.FounderNames,
		model.FieldFounderLinkedIn: rec.FounderLinkedIn,
		model.FieldFounderEmails:   rec.FounderEmails,
		model.FieldWebsite:         rec.Website,
		model.FieldDescription:     rec.Description,
		model.FieldJobPostings:     rec.JobPostings,
		model.FieldFundingAmount:   rec.FundingAmount,
		model.FieldFundingStage:    rec.FundingStage,
		model.FieldLocation:        rec.Location,
		model.FieldIndustry:        rec.Industry,
	}
	for key, val := range stored {
		if val != "" {
			conf[key] = 1.0
		}
	}
	for _, fv := range findings {
		if fv.Value == "" {
			continue
		}
		if fv.Confidence > conf[fv.Key] {
			conf[fv.Key] = fv.Confidence
		}
	}
	return conf
}
