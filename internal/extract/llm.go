package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/pkg/anthropic"
)

// contentPrefixLimit bounds how much article body is sent to the model.
const contentPrefixLimit = 4000

const extractSystemText = "You are a venture funding analyst extracting structured data from news articles. Return valid JSON matching the requested schema. Use null for fields not found. If the article does not name a funded company, set Company_Name to null."

const extractPrompt = `Extract the funding event from this article.

Article title: %s

Article content:
%s

Return a valid JSON object with exactly these keys:
{"Company_Name": <string or null>, "funding_stage": <string or null>, "amount_raised": <string or null>, "date_raised": <string or null>, "location": <string or null>, "industry": <string or null>, "business_type": <string or null>, "website": <string or null>, "company_description": <string or null>}`

// llmResponse is the strict schema for the extraction response. Pointer
// fields distinguish null from empty string.
type llmResponse struct {
	CompanyName  *string `json:"Company_Name"`
	FundingStage *string `json:"funding_stage"`
	AmountRaised *string `json:"amount_raised"`
	DateRaised   *string `json:"date_raised"`
	Location     *string `json:"location"`
	Industry     *string `json:"industry"`
	BusinessType *string `json:"business_type"`
	Website      *string `json:"website"`
	Description  *string `json:"company_description"`
}

// LLMExtractor extracts funding records via the Anthropic API, trying
// each model in order until one is available.
type LLMExtractor struct {
	client anthropic.Client
	models []string
}

// NewLLMExtractor creates an LLM extractor. models must be non-empty.
func NewLLMExtractor(client anthropic.Client, models []string) *LLMExtractor {
	return &LLMExtractor{client: client, models: models}
}

func (e *LLMExtractor) Name() string { return "llm" }

// Extract sends the article to the first available model and parses the
// structured response. A nil-name response or unparseable response
// returns ErrNoResult so the engine falls through to the deterministic
// path. When every model is unavailable it returns ErrUnavailable.
func (e *LLMExtractor) Extract(ctx context.Context, article model.ArticleCandidate) (*model.ExtractedRecord, error) {
	content := truncateUTF8(article.RawContent, contentPrefixLimit)
	prompt := fmt.Sprintf(extractPrompt, article.Title, content)

	var lastErr error
	for _, m := range e.models {
		resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     m,
			MaxTokens: 1024,
			System:    []anthropic.SystemBlock{{Text: extractSystemText}},
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err != nil {
			if !modelUnavailable(err) {
				return nil, eris.Wrap(err, "extract: create message")
			}
			zap.L().Warn("extract: model unavailable, trying next",
				zap.String("model", m),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		resp.Usage.LogCost(m, "extract")
		return e.parse(resp, article)
	}

	return nil, eris.Wrap(lastErr, "extract: all models unavailable")
}

func (e *LLMExtractor) parse(resp *anthropic.MessageResponse, article model.ArticleCandidate) (*model.ExtractedRecord, error) {
	text := responseText(resp)

	var parsed llmResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
		zap.L().Warn("extract: failed to parse extraction JSON",
			zap.String("url", article.URL),
			zap.Error(err),
		)
		return nil, ErrNoResult
	}

	if parsed.CompanyName == nil || strings.TrimSpace(*parsed.CompanyName) == "" {
		return nil, ErrNoResult
	}

	return &model.ExtractedRecord{
		CompanyName:      strings.TrimSpace(*parsed.CompanyName),
		FundingStage:     deref(parsed.FundingStage),
		AmountRaised:     deref(parsed.AmountRaised),
		DateRaised:       deref(parsed.DateRaised),
		Location:         deref(parsed.Location),
		Industry:         deref(parsed.Industry),
		BusinessType:     deref(parsed.BusinessType),
		Website:          deref(parsed.Website),
		Description:      deref(parsed.Description),
		SourceArticleURL: article.URL,
	}, nil
}

// modelUnavailable distinguishes "this model cannot serve the request"
// from content or logic errors. Unavailable models fall through to
// the next one in the list.
func modelUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "404") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "model") && strings.Contains(msg, "deprecated")
}

func responseText(resp *anthropic.MessageResponse) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// cleanJSON strips markdown code fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
