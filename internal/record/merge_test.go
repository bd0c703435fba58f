package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/store"
)

func newTestMerger(t *testing.T) (*Merger, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return NewMerger(s), s
}

func extracted(url string) *model.ExtractedRecord {
	return &model.ExtractedRecord{
		CompanyName:      "Acme AI",
		FundingStage:     "Series A",
		AmountRaised:     "$12M",
		Location:         "San Francisco",
		Industry:         "artificial intelligence",
		Website:          "acmeai.com",
		Description:      "Acme AI builds agents for warehouse logistics.",
		SourceArticleURL: url,
	}
}

func TestFromExtraction(t *testing.T) {
	ex := extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/")
	rec := FromExtraction(ex, "techcrunch")

	assert.Equal(t, "Acme AI", rec.Name)
	assert.Equal(t, "$12M", rec.FundingAmount)
	assert.Equal(t, "Series A", rec.FundingStage)
	assert.Equal(t, ex.SourceArticleURL, rec.SourceArticleURL)
	assert.Equal(t, "techcrunch", rec.DataSource)
	assert.True(t, rec.NeedsEnrichment)
	assert.Equal(t, model.EnrichmentPending, rec.EnrichmentStatus)
}

func TestFromExtractionBusinessTypeFallback(t *testing.T) {
	ex := extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/")
	ex.Industry = ""
	ex.BusinessType = "B2B SaaS"

	rec := FromExtraction(ex, "techcrunch")
	assert.Equal(t, "B2B SaaS", rec.Industry)
}

func TestMergeCreatesThenSkips(t *testing.T) {
	m, s := newTestMerger(t)
	ctx := context.Background()

	rec := FromExtraction(extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/"), "techcrunch")
	outcome, err := m.Merge(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	dup := FromExtraction(extracted(rec.SourceArticleURL), "techcrunch")
	dup.Name = "Acme AI (rerun)"
	outcome, err = m.Merge(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Equal(t, "Acme AI", got.Name)
}

func TestFillEmptyOnlyFillsBlankColumns(t *testing.T) {
	m, s := newTestMerger(t)
	ctx := context.Background()

	rec := FromExtraction(extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/"), "techcrunch")
	_, err := m.Merge(ctx, rec)
	require.NoError(t, err)

	err = m.FillEmpty(ctx, rec.ID, []model.FieldValue{
		{Key: model.FieldFounderNames, Value: "Jane Rivera, Sam Okafor", Confidence: 0.9},
		{Key: model.FieldWebsite, Value: "wrong-domain.io", Confidence: 0.4},
	})
	require.NoError(t, err)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Equal(t, "Jane Rivera, Sam Okafor", got.FounderNames)
	assert.Equal(t, "Jane", got.FounderFirstName)
	assert.Equal(t, "Rivera", got.FounderLastName)
	assert.Equal(t, "acmeai.com", got.Website)
}

func TestFillEmptyDropsPlaceholderEmail(t *testing.T) {
	m, s := newTestMerger(t)
	ctx := context.Background()

	rec := FromExtraction(extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/"), "techcrunch")
	_, err := m.Merge(ctx, rec)
	require.NoError(t, err)

	err = m.FillEmpty(ctx, rec.ID, []model.FieldValue{
		{Key: model.FieldFounderEmails, Value: "hello@acmeai.com", Confidence: 0.3},
	})
	require.NoError(t, err)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Empty(t, got.FounderEmails)

	err = m.FillEmpty(ctx, rec.ID, []model.FieldValue{
		{Key: model.FieldFounderEmails, Value: "jane@acmeai.com", Confidence: 0.4},
	})
	require.NoError(t, err)

	got, err = s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Equal(t, "jane@acmeai.com", got.FounderEmails)
}

func TestFillEmptyFirstFindingPerColumnWins(t *testing.T) {
	m, s := newTestMerger(t)
	ctx := context.Background()

	rec := FromExtraction(extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/"), "techcrunch")
	rec.Location = ""
	_, err := m.Merge(ctx, rec)
	require.NoError(t, err)

	err = m.FillEmpty(ctx, rec.ID, []model.FieldValue{
		{Key: model.FieldLocation, Value: "Austin", Confidence: 0.8},
		{Key: model.FieldLocation, Value: "Miami", Confidence: 0.5},
	})
	require.NoError(t, err)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Equal(t, "Austin", got.Location)
}

func TestFillEmptySkipsUnknownKeysAndBlanks(t *testing.T) {
	m, _ := newTestMerger(t)
	ctx := context.Background()

	rec := FromExtraction(extracted("https://techcrunch.com/2025/11/20/acme-ai-raises/"), "techcrunch")
	_, err := m.Merge(ctx, rec)
	require.NoError(t, err)

	err = m.FillEmpty(ctx, rec.ID, []model.FieldValue{
		{Key: model.FieldTechStack, Value: "Go, Postgres", Confidence: 0.7},
		{Key: model.FieldFounderNames, Value: "   ", Confidence: 0.9},
	})
	require.NoError(t, err)
}

func TestIsPlaceholderEmail(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"hello@acme.com", true},
		{"info@acme.com", true},
		{"Team@Acme.com", true},
		{"founders@acme.com", true},
		{"jane@acme.com", false},
		{"j.rivera@acme.com", false},
		{"not-an-email", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPlaceholderEmail(tt.addr), tt.addr)
	}
}

func TestSplitFounderName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"Jane Rivera", "Jane", "Rivera"},
		{"Jane Rivera, Sam Okafor", "Jane", "Rivera"},
		{"Jane Rivera and Sam Okafor", "Jane", "Rivera"},
		{"Jane & Sam", "Jane", ""},
		{"Madonna", "Madonna", ""},
		{"Mary Anne van der Berg", "Mary", "Berg"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitFounderName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
