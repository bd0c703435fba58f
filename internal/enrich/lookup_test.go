package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/pkg/anthropic"
)

// stubModel returns a canned response text, optionally failing the first
// model identifier to exercise the fallback.
type stubModel struct {
	text        string
	err         error
	failModels  map[string]error
	seenModels  []string
	lastRequest anthropic.MessageRequest
}

func (s *stubModel) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.seenModels = append(s.seenModels, req.Model)
	s.lastRequest = req
	if err, ok := s.failModels[req.Model]; ok {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

func testRecord() *model.StartupRecord {
	return &model.StartupRecord{
		ID:               "rec-1",
		Name:             "Acme AI",
		Website:          "acmeai.com",
		Description:      "Acme AI builds agents for warehouse logistics.",
		SourceArticleURL: "https://techcrunch.com/2025/11/20/acme-ai-raises/",
	}
}

func TestFounderLookupParsesResponse(t *testing.T) {
	stub := &stubModel{text: "```json\n{\"founder_names\": \"Jane Rivera, Sam Okafor\", \"founder_linkedin\": \"https://linkedin.com/in/janerivera\", \"founder_background\": null}\n```"}
	l := NewFounderLookup(stub, []string{"model-a"})

	vals, err := l.Lookup(context.Background(), testRecord())
	require.NoError(t, err)
	require.Len(t, vals, 2)

	byKey := map[string]model.FieldValue{}
	for _, v := range vals {
		byKey[v.Key] = v
	}
	assert.Equal(t, "Jane Rivera, Sam Okafor", byKey[model.FieldFounderNames].Value)
	assert.Equal(t, founderConfidence, byKey[model.FieldFounderNames].Confidence)
	assert.Equal(t, "founder", byKey[model.FieldFounderNames].Source)
	assert.Equal(t, "https://linkedin.com/in/janerivera", byKey[model.FieldFounderLinkedIn].Value)
}

func TestFounderLookupModelFallback(t *testing.T) {
	stub := &stubModel{
		text:       `{"founder_names": "Jane Rivera", "founder_linkedin": null, "founder_background": null}`,
		failModels: map[string]error{"model-a": eris.New("model not_found")},
	}
	l := NewFounderLookup(stub, []string{"model-a", "model-b"})

	vals, err := l.Lookup(context.Background(), testRecord())
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, []string{"model-a", "model-b"}, stub.seenModels)
}

func TestFounderLookupHardErrorPropagates(t *testing.T) {
	stub := &stubModel{err: eris.New("invalid_request_error")}
	l := NewFounderLookup(stub, []string{"model-a", "model-b"})

	_, err := l.Lookup(context.Background(), testRecord())
	require.Error(t, err)
	assert.Len(t, stub.seenModels, 1)
}

func TestCompanyLookupParsesResponse(t *testing.T) {
	stub := &stubModel{text: `{"website": "acmeai.com", "job_postings": "3 engineering roles", "funding_amount": null, "tech_stack": "Go, Postgres", "target_customer": "3PL operators", "market_vertical": "logistics", "team_size": "25"}`}
	l := NewCompanyLookup(stub, []string{"model-a"})

	vals, err := l.Lookup(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Len(t, vals, 6)
	for _, v := range vals {
		assert.Equal(t, companyConfidence, v.Confidence)
		assert.Equal(t, "company", v.Source)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"Here is the data:\n{\"a\": 1}\nHope that helps.", "{\"a\": 1}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJSON(tt.in))
	}
}

func TestFieldValuesFiltersNullish(t *testing.T) {
	null := "null"
	blank := "  "
	ok := "value"
	vals := fieldValues("test", 0.5, map[string]*string{
		"a": nil,
		"b": &null,
		"c": &blank,
		"d": &ok,
	})
	require.Len(t, vals, 1)
	assert.Equal(t, "d", vals[0].Key)
}
