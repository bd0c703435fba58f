// Package extract turns one article into a structured funding record,
// using a hosted model as the primary extractor and deterministic text
// patterns as the fallback.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// ErrNoResult signals that a strategy produced no usable record for the
// article (parse failure or null company name). The engine falls
// through to the next strategy.
var ErrNoResult = eris.New("extract: no result")

// ErrNoCompanyName signals that no strategy could determine a company
// name. The article is discarded, not retried.
var ErrNoCompanyName = eris.New("extract: no company name derivable")

// Strategy is a single extractor in the fallback chain.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, article model.ArticleCandidate) (*model.ExtractedRecord, error)
}

// Engine tries strategies in priority order, returning the first
// success. Fields the winning strategy left empty are filled from the
// deterministic patterns; populated fields are never replaced.
type Engine struct {
	strategies []Strategy
}

// NewEngine creates an Engine. Strategies are tried in order.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Extract produces a record for the article or ErrNoCompanyName when
// neither the model nor the patterns can name a company.
func (e *Engine) Extract(ctx context.Context, article model.ArticleCandidate) (*model.ExtractedRecord, error) {
	fallback := Patterns(article)

	for _, s := range e.strategies {
		rec, err := s.Extract(ctx, article)
		if err != nil {
			zap.L().Debug("extract: strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.String("url", article.URL),
				zap.Error(err),
			)
			continue
		}
		rec.SourceArticleContent = article.RawContent
		fillFromPatterns(rec, fallback)
		return rec, nil
	}

	if fallback.CompanyName == "" {
		return nil, ErrNoCompanyName
	}
	fallback.SourceArticleContent = article.RawContent
	return &fallback, nil
}

// fillFromPatterns copies pattern values into fields the primary path
// left empty. Primary values always win where both exist.
func fillFromPatterns(rec *model.ExtractedRecord, fb model.ExtractedRecord) {
	if rec.FundingStage == "" {
		rec.FundingStage = fb.FundingStage
	}
	if rec.AmountRaised == "" {
		rec.AmountRaised = fb.AmountRaised
	}
	if rec.Location == "" {
		rec.Location = fb.Location
	}
	if rec.Industry == "" {
		rec.Industry = fb.Industry
	}
	if rec.BusinessType == "" {
		rec.BusinessType = fb.BusinessType
	}
	if rec.Website == "" {
		rec.Website = fb.Website
	}
	if rec.DateRaised == "" {
		rec.DateRaised = DateMention(rec.SourceArticleContent)
	}
}
