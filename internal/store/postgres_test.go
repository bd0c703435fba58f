package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_InsertStartup_Created(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO startups`).
		WithArgs(
			pgxmock.AnyArg(), "Acme AI", "acmeai.com", "", "", "", "", "", "San Francisco",
			"artificial intelligence", "Acme AI builds agents.", "$12M", "Series A", "",
			"https://techcrunch.com/2025/11/20/acme-ai-raises/", "techcrunch", true,
			"pending", 0, 0.0, "", "", pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := &model.StartupRecord{
		Name:             "Acme AI",
		Website:          "acmeai.com",
		Description:      "Acme AI builds agents.",
		FundingAmount:    "$12M",
		FundingStage:     "Series A",
		Location:         "San Francisco",
		Industry:         "artificial intelligence",
		SourceArticleURL: "https://techcrunch.com/2025/11/20/acme-ai-raises/",
		DataSource:       "techcrunch",
		NeedsEnrichment:  true,
	}
	created, err := s.InsertStartup(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertStartup_ConflictSkips(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	anyArgs := make([]interface{}, 24)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`ON CONFLICT \(source_article_url\) DO NOTHING`).
		WithArgs(anyArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	rec := &model.StartupRecord{
		Name:             "Acme AI",
		SourceArticleURL: "https://techcrunch.com/2025/11/20/acme-ai-raises/",
	}
	created, err := s.InsertStartup(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetStartupByURL_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM startups WHERE source_article_url = \$1`).
		WithArgs("https://techcrunch.com/2025/01/01/unknown/").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetStartupByURL(context.Background(), "https://techcrunch.com/2025/01/01/unknown/")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_KnownSourceURLs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"source_article_url"}).
		AddRow("https://techcrunch.com/2025/11/20/acme-ai-raises/").
		AddRow("https://techcrunch.com/2025/11/21/beta-bio-seed/")
	mock.ExpectQuery(`SELECT source_article_url FROM startups`).WillReturnRows(rows)

	known, err := s.KnownSourceURLs(context.Background())
	require.NoError(t, err)
	assert.Len(t, known, 2)
	assert.True(t, known["https://techcrunch.com/2025/11/20/acme-ai-raises/"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetEnrichmentState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET enrichment_status = \$1, enrichment_attempts = \$2`).
		WithArgs("in_progress", 2, "rec-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetEnrichmentState(context.Background(), "rec-123", model.EnrichmentInProgress, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetEnrichmentState_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET enrichment_status`).
		WithArgs("in_progress", 1, "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetEnrichmentState(context.Background(), "missing-id", model.EnrichmentInProgress, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetQuality(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET quality_score = \$1, quality_status = \$2, enrichment_status = \$3`).
		WithArgs(0.85, "excellent", "completed", "rec-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetQuality(context.Background(), "rec-123", 0.85, model.QualityExcellent, model.EnrichmentCompleted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetFounderEmail(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET founder_emails = CASE WHEN founder_emails = '' THEN \$1 ELSE founder_emails END`).
		WithArgs("jane@acmeai.com", "rec-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetFounderEmail(context.Background(), "rec-123", "jane@acmeai.com")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetVectorID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET vector_id = \$1`).
		WithArgs("vec-123", "rec-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetVectorID(context.Background(), "rec-123", "vec-123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FillEmptyFields_RejectsUnknownColumn(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.FillEmptyFields(context.Background(), "rec-123", map[string]string{"id": "evil"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not fillable")
}

func TestPostgresStore_FillEmptyFields_SingleColumn(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE startups SET founder_names = CASE WHEN founder_names = '' THEN \$2 ELSE founder_names END`).
		WithArgs("rec-123", "Jane Rivera").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FillEmptyFields(context.Background(), "rec-123", map[string]string{"founder_names": "Jane Rivera"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
