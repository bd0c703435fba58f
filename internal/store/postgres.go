package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/seedscout/seedscout-cli/internal/db"
	"github.com/seedscout/seedscout-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// startupColumns is the canonical column order shared by inserts and scans.
const startupColumns = `id, name, website, founder_names, founder_first_name, founder_last_name,
	founder_emails, founder_linkedin, location, industry, description, funding_amount,
	funding_stage, job_postings, source_article_url, data_source, needs_enrichment,
	enrichment_status, enrichment_attempts, quality_score, quality_status, vector_id,
	created_at, updated_at`

// fillableColumns are the columns the fill-only-empty merge may target.
// Everything else is immutable after insert or has a dedicated setter.
var fillableColumns = map[string]bool{
	"website": true, "founder_names": true, "founder_first_name": true,
	"founder_last_name": true, "founder_emails": true, "founder_linkedin": true,
	"location": true, "industry": true, "description": true,
	"funding_amount": true, "funding_stage": true, "job_postings": true,
	"data_source": true,
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_startup_by_url":    `SELECT ` + startupColumns + ` FROM startups WHERE source_article_url = $1`,
	"known_source_urls":     `SELECT source_article_url FROM startups`,
	"set_enrichment_state":  `UPDATE startups SET enrichment_status = $1, enrichment_attempts = $2, updated_at = now() WHERE id = $3`,
	"set_vector_id":         `UPDATE startups SET vector_id = $1, updated_at = now() WHERE id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	needs_enrichment    BOOLEAN NOT NULL DEFAULT true,
	enrichment_status   TEXT NOT NULL DEFAULT 'pending',
	enrichment_attempts INTEGER NOT NULL DEFAULT 0,
	quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_status      TEXT NOT NULL DEFAULT '',
	vector_id           TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_startups_enrichment_status ON startups(enrichment_status);
CREATE INDEX IF NOT EXISTS idx_startups_needs_enrichment ON startups(needs_enrichment);
CREATE INDEX IF NOT EXISTS idx_startups_quality_status ON startups(quality_status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertStartup(ctx context.Context, rec *model.StartupRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.EnrichmentStatus == "" {
		rec.EnrichmentStatus = model.EnrichmentPending
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO startups (`+startupColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		 ON CONFLICT (source_article_url) DO NOTHING`,
		rec.ID, rec.Name, rec.Website, rec.FounderNames, rec.FounderFirstName, rec.FounderLastName,
		rec.FounderEmails, rec.FounderLinkedIn, rec.Location, rec.Industry, rec.Description, rec.FundingAmount,
		rec.FundingStage, rec.JobPostings, rec.SourceArticleURL, rec.DataSource, rec.NeedsEnrichment,
		string(rec.EnrichmentStatus), rec.EnrichmentAttempts, rec.QualityScore, string(rec.QualityStatus), rec.VectorID,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert startup")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetStartupByURL(ctx context.Context, sourceURL string) (*model.StartupRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+startupColumns+` FROM startups WHERE source_article_url = $1`,
		sourceURL,
	)
	rec, err := scanStartup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get startup by url")
	}
	return rec, nil
}

func (s *PostgresStore) KnownSourceURLs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT source_article_url FROM startups`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: known source urls")
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source url")
		}
		known[u] = true
	}
	return known, eris.Wrap(rows.Err(), "postgres: known source urls iterate")
}

func (s *PostgresStore) ListNeedingEnrichment(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE needs_enrichment = true AND enrichment_status IN ('pending', 'needs_review', 'failed')
		 ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list needing enrichment")
	}
	return collectStartups(rows, "postgres: list needing enrichment")
}

func (s *PostgresStore) ListMissingEmails(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE founder_names <> '' AND founder_emails = '' AND website <> ''
		 ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing emails")
	}
	return collectStartups(rows, "postgres: list missing emails")
}

func (s *PostgresStore) ListMissingVectors(ctx context.Context, limit int) ([]model.StartupRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+startupColumns+` FROM startups
		 WHERE vector_id = '' AND description <> ''
		 ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing vectors")
	}
	return collectStartups(rows, "postgres: list missing vectors")
}

// FillEmptyFields writes each value only when the column is currently
// empty. Populated columns keep their stored value.
func (s *PostgresStore) FillEmptyFields(ctx context.Context, id string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	var setClauses []string
	args := []any{id}
	argIdx := 2
	for col, val := range fields {
		if !fillableColumns[col] {
			return eris.Errorf("postgres: column not fillable: %s", col)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = CASE WHEN %s = '' THEN $%d ELSE %s END", col, col, argIdx, col))
		args = append(args, val)
		argIdx++
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE startups SET %s WHERE id = $1`, strings.Join(setClauses, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: fill empty fields %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetEnrichmentState(ctx context.Context, id string, status model.EnrichmentStatus, attempts int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE startups SET enrichment_status = $1, enrichment_attempts = $2, updated_at = now() WHERE id = $3`,
		string(status), attempts, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set enrichment state %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetQuality(ctx context.Context, id string, score float64, quality model.QualityStatus, status model.EnrichmentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE startups SET quality_score = $1, quality_status = $2, enrichment_status = $3,
		 needs_enrichment = ($3 <> 'completed'), updated_at = now() WHERE id = $4`,
		score, string(quality), string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set quality %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetFounderEmail(ctx context.Context, id, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE startups SET founder_emails = CASE WHEN founder_emails = '' THEN $1 ELSE founder_emails END,
		 updated_at = now() WHERE id = $2`,
		email, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set founder email %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ClearNeedsEnrichment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE startups SET needs_enrichment = false, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: clear needs enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetVectorID(ctx context.Context, id, vectorID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE startups SET vector_id = $1, updated_at = now() WHERE id = $2`,
		vectorID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vector id %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("startup not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:  make(map[string]int),
		ByQuality: make(map[string]int),
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM startups`).Scan(&stats.Total); err != nil {
		return nil, eris.Wrap(err, "postgres: stats total")
	}

	rows, err := s.pool.Query(ctx, `SELECT enrichment_status, COUNT(*) FROM startups GROUP BY enrichment_status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		stats.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats by status iterate")
	}

	qrows, err := s.pool.Query(ctx, `SELECT quality_status, COUNT(*) FROM startups WHERE quality_status <> '' GROUP BY quality_status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by quality")
	}
	defer qrows.Close()
	for qrows.Next() {
		var status string
		var n int
		if err := qrows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan quality count")
		}
		stats.ByQuality[status] = n
	}
	if err := qrows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats by quality iterate")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM startups WHERE founder_emails <> ''`).Scan(&stats.WithEmails); err != nil {
		return nil, eris.Wrap(err, "postgres: stats with emails")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM startups WHERE vector_id <> ''`).Scan(&stats.WithVectors); err != nil {
		return nil, eris.Wrap(err, "postgres: stats with vectors")
	}
	stats.NeedingReview = stats.ByStatus[string(model.EnrichmentNeedsReview)]

	return stats, nil
}

// scanStartup scans one row in startupColumns order.
func scanStartup(row pgx.Row) (*model.StartupRecord, error) {
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

func collectStartups(rows pgx.Rows, opName string) ([]model.StartupRecord, error) {
	defer rows.Close()

	var recs []model.StartupRecord
	for rows.Next() {
		rec, err := scanStartup(rows)
		if err != nil {
			return nil, eris.Wrap(err, opName+" scan")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), opName+" iterate")
}
