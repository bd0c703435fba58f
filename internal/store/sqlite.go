package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS startups (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	website             TEXT NOT NULL DEFAULT '',
	founder_names       TEXT NOT NULL DEFAULT '',
	founder_first_name  TEXT NOT NULL DEFAULT '',
	founder_last_name   TEXT NOT NULL DEFAULT '',
	founder_emails      TEXT NOT NULL DEFAULT '',
	founder_linkedin    TEXT NOT NULL DEFAULT '',
	location            TEXT NOT NULL DEFAULT '',
	industry            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	funding_amount      TEXT NOT NULL DEFAULT '',
	funding_stage       TEXT NOT NULL DEFAULT '',
	job_postings        TEXT NOT NULL DEFAULT '',
	source_article_url  TEXT NOT NULL UNIQUE,
	data_source         TEXT NOT NULL DEFAULT '',
	needs_enrichment    BOOLEAN NOT NULL DEFAULT 1,
	enrichment_status   TEXT NOT NULL DEFAULT 'pending',
	enrichment_attempts INTEGER NOT NULL DEFAULT 0,
	quality_score       REAL NOT NULL DEFAULT 0,
	quality_status      TEXT NOT NULL DEFAULT '',
	vector_id           TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_startups_enrichment_status ON startups(enrichment_status);
CREATE INDEX IF NOT EXISTS idx_startups_needs_enrichment ON startups(needs_enrichment);
CREATE INDEX IF NOT EXISTS idx_startups_quality_status ON startups(quality_status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertStartup(ctx context.Context, rec *model.StartupRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.EnrichmentStatus == "" {
		rec.EnrichmentStatus = model.EnrichmentPending
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO startups (`+startupColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_article_url) DO NOTHING`,
		rec.ID, rec.Name, rec.Website, rec.FounderNames, rec.FounderFirstName, rec.FounderLastName,
		rec.FounderEmails, rec.FounderLinkedIn, rec.Location, rec.Industry, rec.Description, rec.FundingAmount,
		rec.FundingStage, rec.JobPostings, rec.SourceArticleURL, rec.DataSource, rec.NeedsEnrichment,
		string(rec.EnrichmentStatus), rec.EnrichmentAttempts, rec.QualityScore, string(rec.QualityStatus), rec.VectorID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert startup")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) GetStartupByURL(ctx context.Context, sourceURL string) (*model.StartupRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+startupColumns+` FROM startups WHERE source_article_url = ?`,
		sourceURL,
	)
	rec, err := scanStartupSQL(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get startup by url")
	}
	return rec, nil
}

func (s *SQLiteStore) KnownSourceURLs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_article_url FROM startups`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: known source urls")
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source url")
		}
		known[u] = true
	}
	return known, eris.Wrap(rows.Err(), "sqlite: known source urls iterate")
}

func (s *SQLiteStore) ListNeedingEnrichment(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE needs_enrichment = 1 AND enrichment_status IN ('pending', 'needs_review', 'failed')
		 ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list needing enrichment")
	}
	return collectStartupsSQL(rows, "sqlite: list needing enrichment")
}

func (s *SQLiteStore) ListMissingEmails(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE founder_names <> '' AND founder_emails = '' AND website <> ''
		 ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missing emails")
	}
	return collectStartupsSQL(rows, "sqlite: list missing emails")
}

func (s *SQLiteStore) ListMissingVectors(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE vector_id = '' AND description <> ''
		 ORDER BY created_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missing vectors")
	}
	return collectStartupsSQL(rows, "sqlite: list missing vectors")
}

func (s *SQLiteStore) FillEmptyFields(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	var setClauses []string
	var args []any
	for col, val := range fields {
		if !fillableColumns[col] {
			return eris.Errorf("sqlite: column not fillable: %s", col)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = CASE WHEN %s = '' THEN ? ELSE %s END", col, col, col))
		args = append(args, val)
	}
	setClauses = append(setClauses, "updated_at = datetime('now')")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE startups SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fill empty fields %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) SetEnrichmentState(ctx context.Context, id string, status model.EnrichmentStatus, attempts int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE startups SET enrichment_status = ?, enrichment_attempts = ?, updated_at = datetime('now') WHERE id = ?`,
		string(status), attempts, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set enrichment state %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) SetQuality(ctx context.Context, id string, score float64, quality model.QualityStatus, status model.EnrichmentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE startups SET quality_score = ?, quality_status = ?, enrichment_status = ?,
		 needs_enrichment = (? <> 'completed'), updated_at = datetime('now') WHERE id = ?`,
		score, string(quality), string(status), string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set quality %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) SetFounderEmail(ctx context.Context, id, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE startups SET founder_emails = CASE WHEN founder_emails = '' THEN ? ELSE founder_emails END,
		 updated_at = datetime('now') WHERE id = ?`,
		email, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set founder email %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) ClearNeedsEnrichment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE startups SET needs_enrichment = 0, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: clear needs enrichment %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) SetVectorID(ctx context.Context, id, vectorID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE startups SET vector_id = ?, updated_at = datetime('now') WHERE id = ?`,
		vectorID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vector id %s", id)
	}
	return checkRowsAffected(res, "startup", id)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:  make(map[string]int),
		ByQuality: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM startups`).Scan(&stats.Total); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats total")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT enrichment_status, COUNT(*) FROM startups GROUP BY enrichment_status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by status iterate")
	}

	qrows, err := s.db.QueryContext(ctx, `SELECT quality_status, COUNT(*) FROM startups WHERE quality_status <> '' GROUP BY quality_status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by quality")
	}
	defer qrows.Close()
	for qrows.Next() {
		var status string
		var n int
		if err := qrows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quality count")
		}
		stats.ByQuality[status] = n
	}
	if err := qrows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by quality iterate")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM startups WHERE founder_emails <> ''`).Scan(&stats.WithEmails); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats with emails")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM startups WHERE vector_id <> ''`).Scan(&stats.WithVectors); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats with vectors")
	}
	stats.NeedingReview = stats.ByStatus[string(model.EnrichmentNeedsReview)]

	return stats, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStartupSQL(row scannable) (*model.StartupRecord, error) {
	var r model.StartupRecord
	var status, quality string
	err := row.Scan(
		&r.ID, &r.Name, &r.Website, &r.FounderNames, &r.FounderFirstName, &r.FounderLastName,
		&r.FounderEmails, &r.FounderLinkedIn, &r.Location, &r.Industry, &r.Description, &r.FundingAmount,
		&r.FundingStage, &r.JobPostings, &r.SourceArticleURL, &r.DataSource, &r.NeedsEnrichment,
		&status, &r.EnrichmentAttempts, &r.QualityScore, &quality, &r.VectorID,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.EnrichmentStatus = model.EnrichmentStatus(status)
	r.QualityStatus = model.QualityStatus(quality)
	return &r, nil
}

func collectStartupsSQL(rows *sql.Rows, opName string) ([]model.StartupRecord, error) {
	defer rows.Close()

	var recs []model.StartupRecord
	for rows.Next() {
		rec, err := scanStartupSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, opName+" scan")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), opName+" iterate")
}
