// Package enrich runs the per-record enrichment state machine: isolated
// lookups for missing fields, fill-only-empty merge, quality assessment
// and bounded retries.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/pkg/anthropic"
)

// Lookup finds values for a subset of record fields. Fields lists the
// keys a lookup can produce so the orchestrator skips lookups whose
// fields are all populated already.
type Lookup interface {
	Name() string
	Fields() []string
	Lookup(ctx context.Context, rec *model.StartupRecord) ([]model.FieldValue, error)
}

const founderSystemText = "You are a startup research assistant. Answer only with valid JSON matching the requested schema. Use null for anything you do not know; never guess names."

const founderPrompt = `Identify the founders of this startup.

Company: %s
Website: %s
Description: %s
Funding coverage: %s

Return a valid JSON object with exactly these keys:
{"founder_names": <comma-separated string or null>, "founder_linkedin": <profile URL of the primary founder or null>, "founder_background": <one sentence or null>}`

type founderResponse struct {
	FounderNames      *string `json:"founder_names"`
	FounderLinkedIn   *string `json:"founder_linkedin"`
	FounderBackground *string `json:"founder_background"`
}

// founderConfidence is attributed to model-sourced founder fields. It
// clears the critical-tier threshold so a confirmed name counts.
const founderConfidence = 0.75

// FounderLookup asks the model for founder identity details.
type FounderLookup struct {
	client anthropic.Client
	models []string
}

func NewFounderLookup(client anthropic.Client, models []string) *FounderLookup {
	return &FounderLookup{client: client, models: models}
}

func (l *FounderLookup) Name() string { return "founder" }

func (l *FounderLookup) Fields() []string {
	return []string{
		model.FieldFounderNames,
		model.FieldFounderLinkedIn,
		model.FieldFounderBackground,
	}
}

func (l *FounderLookup) Lookup(ctx context.Context, rec *model.StartupRecord) ([]model.FieldValue, error) {
	prompt := fmt.Sprintf(founderPrompt, rec.Name, rec.Website, rec.Description, rec.SourceArticleURL)
	text, err := askModels(ctx, l.client, l.models, founderSystemText, prompt, "enrich_founder")
	if err != nil {
		return nil, eris.Wrap(err, "enrich: founder lookup")
	}

	var parsed founderResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		return nil, eris.Wrap(err, "enrich: parse founder response")
	}

	return fieldValues(l.Name(), founderConfidence, map[string]*string{
		model.FieldFounderNames:      parsed.FounderNames,
		model.FieldFounderLinkedIn:   parsed.FounderLinkedIn,
		model.FieldFounderBackground: parsed.FounderBackground,
	}), nil
}

const companySystemText = "You are a startup research assistant. Answer only with valid JSON matching the requested schema. Use null for anything you do not know."

const companyPrompt = `Profile this startup for a funding database.

Company: %s
Website: %s
Industry: %s
Description: %s

Return a valid JSON object with exactly these keys:
{"website": <canonical domain or null>, "job_postings": <short summary of open roles or null>, "funding_amount": <e.g. "$12M" or null>, "tech_stack": <comma-separated string or null>, "target_customer": <string or null>, "market_vertical": <string or null>, "team_size": <string or null>}`

type companyResponse struct {
	Website        *string `json:"website"`
	JobPostings    *string `json:"job_postings"`
	FundingAmount  *string `json:"funding_amount"`
	TechStack      *string `json:"tech_stack"`
	TargetCustomer *string `json:"target_customer"`
	MarketVertical *string `json:"market_vertical"`
	TeamSize       *string `json:"team_size"`
}

const companyConfidence = 0.7

// CompanyLookup asks the model for the company profile fields: canonical
// website, hiring signal, funding amount correction and the optional
// descriptors.
type CompanyLookup struct {
	client anthropic.Client
	models []string
}

func NewCompanyLookup(client anthropic.Client, models []string) *CompanyLookup {
	return &CompanyLookup{client: client, models: models}
}

func (l *CompanyLookup) Name() string { return "company" }

func (l *CompanyLookup) Fields() []string {
	return []string{
		model.FieldWebsite,
		model.FieldJobPostings,
		model.FieldFundingAmount,
		model.FieldTechStack,
		model.FieldTargetCustomer,
		model.FieldMarketVertical,
		model.FieldTeamSize,
	}
}

func (l *CompanyLookup) Lookup(ctx context.Context, rec *model.StartupRecord) ([]model.FieldValue, error) {
	prompt := fmt.Sprintf(companyPrompt, rec.Name, rec.Website, rec.Industry, rec.Description)
	text, err := askModels(ctx, l.client, l.models, companySystemText, prompt, "enrich_company")
	if err != nil {
		return nil, eris.Wrap(err, "enrich: company lookup")
	}

	var parsed companyResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		return nil, eris.Wrap(err, "enrich: parse company response")
	}

	return fieldValues(l.Name(), companyConfidence, map[string]*string{
		model.FieldWebsite:        parsed.Website,
		model.FieldJobPostings:    parsed.JobPostings,
		model.FieldFundingAmount:  parsed.FundingAmount,
		model.FieldTechStack:      parsed.TechStack,
		model.FieldTargetCustomer: parsed.TargetCustomer,
		model.FieldMarketVertical: parsed.MarketVertical,
		model.FieldTeamSize:       parsed.TeamSize,
	}), nil
}

// askModels sends the prompt to each model in order until one is
// available and returns the text of the first content block.
func askModels(ctx context.Context, client anthropic.Client, models []string, system, prompt, operation string) (string, error) {
	var lastErr error
	for _, m := range models {
		resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     m,
			MaxTokens: 1024,
			System:    []anthropic.SystemBlock{{Text: system}},
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			if !modelUnavailable(err) {
				return "", err
			}
			zap.L().Warn("enrich: model unavailable, trying next",
				zap.String("model", m),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		resp.Usage.LogCost(m, operation)
		for _, block := range resp.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", nil
	}
	return "", eris.Wrap(lastErr, "all models unavailable")
}

func modelUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"not_found", "404", "overloaded", "529"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return strings.Contains(msg, "model") && strings.Contains(msg, "deprecated")
}

func fieldValues(source string, confidence float64, vals map[string]*string) []model.FieldValue {
	var out []model.FieldValue
	for key, val := range vals {
		if val == nil {
			continue
		}
		v := strings.TrimSpace(*val)
		if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "unknown") {
			continue
		}
		out = append(out, model.FieldValue{Key: key, Value: v, Confidence: confidence, Source: source})
	}
	return out
}

// cleanJSON strips markdown code fences and any prose around the JSON
// object in a model response.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
