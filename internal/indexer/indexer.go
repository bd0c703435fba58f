// Package indexer embeds startup records and mirrors them into the
// vector index. The relational row is authoritative; a failed embedding
// or upsert is retried by a later reindex pass, never surfaced to the
// write path.
package indexer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/resilience"
	"github.com/seedscout/seedscout-cli/internal/store"
	"github.com/seedscout/seedscout-cli/pkg/openai"
	"github.com/seedscout/seedscout-cli/pkg/pinecone"
)

// embedAttempts bounds the rate-limit backoff on the embedding call.
const embedAttempts = 4

// Indexer embeds and upserts records one at a time.
type Indexer struct {
	store     store.Store
	embedder  openai.Client
	index     pinecone.Client
	namespace string
}

func New(s store.Store, embedder openai.Client, index pinecone.Client, namespace string) *Indexer {
	return &Indexer{store: s, embedder: embedder, index: index, namespace: namespace}
}

// BuildInput concatenates the record's descriptive fields into the
// embedding input text.
func BuildInput(rec *model.StartupRecord) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(rec.Description)
	add(rec.Name)
	if rec.FundingStage != "" || rec.FundingAmount != "" {
		add(strings.TrimSpace(rec.FundingStage + " " + rec.FundingAmount))
	}
	add(rec.Location)
	add(rec.Industry)
	return strings.Join(parts, ". ")
}

// Index embeds one record and upserts it under the record id. Rate
// limits back off and retry up to the bound; any other embedding
// failure yields no vector and no upsert, and the caller is not
// errored. Only the upsert and the vector id write report errors.
func (ix *Indexer) Index(ctx context.Context, rec *model.StartupRecord) error {
	input := BuildInput(rec)
	if input == "" {
		return nil
	}

	vector := ix.embed(ctx, rec.ID, input)
	if len(vector) == 0 {
		return nil
	}

	_, err := ix.index.Upsert(ctx, pinecone.UpsertRequest{
		Namespace: ix.namespace,
		Vectors: []pinecone.Vector{{
			ID:       rec.ID,
			Values:   vector,
			Metadata: metadataFor(rec),
		}},
	})
	if err != nil {
		return eris.Wrap(err, "indexer: upsert vector")
	}

	if err := ix.store.SetVectorID(ctx, rec.ID, rec.ID); err != nil {
		return eris.Wrap(err, "indexer: persist vector id")
	}
	return nil
}

// Reindex walks records that have descriptive text but no vector yet.
// Per-record failures are logged and skipped.
func (ix *Indexer) Reindex(ctx context.Context, limit int) (indexed int, err error) {
	recs, err := ix.store.ListMissingVectors(ctx, limit)
	if err != nil {
		return 0, eris.Wrap(err, "indexer: list records")
	}
	for i := range recs {
		rec := &recs[i]
		if err := ix.Index(ctx, rec); err != nil {
			zap.L().Warn("indexer: record skipped",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// embed returns the embedding vector, or nil when the service cannot
// serve it. Rate limits retry with backoff; anything else gives up
// immediately.
func (ix *Indexer) embed(ctx context.Context, id, input string) []float32 {
	policy := resilience.RateLimitPolicy(embedAttempts)
	policy.OnRetry = resilience.RetryLogger("openai", "embed")

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*openai.EmbeddingResponse, error) {
		return ix.embedder.CreateEmbedding(ctx, openai.EmbeddingRequest{Input: []string{input}})
	})
	if err != nil {
		zap.L().Warn("indexer: embedding unavailable, vector deferred",
			zap.String("id", id),
			zap.Error(err),
		)
		return nil
	}
	if len(resp.Data) == 0 {
		zap.L().Warn("indexer: empty embedding response", zap.String("id", id))
		return nil
	}
	return resp.Data[0].Embedding
}

func metadataFor(rec *model.StartupRecord) map[string]string {
	meta := map[string]string{
		"name":               rec.Name,
		"source_article_url": rec.SourceArticleURL,
	}
	if rec.Website != "" {
		meta["website"] = rec.Website
	}
	if rec.FundingStage != "" {
		meta["funding_stage"] = rec.FundingStage
	}
	if rec.FundingAmount != "" {
		meta["funding_amount"] = rec.FundingAmount
	}
	if rec.Location != "" {
		meta["location"] = rec.Location
	}
	if rec.Industry != "" {
		meta["industry"] = rec.Industry
	}
	return meta
}
