package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/store"
	"github.com/seedscout/seedscout-cli/pkg/openai"
	"github.com/seedscout/seedscout-cli/pkg/pinecone"
)

type stubEmbedder struct {
	vector []float32
	err    error
	inputs []string
}

func (s *stubEmbedder) CreateEmbedding(_ context.Context, req openai.EmbeddingRequest) (*openai.EmbeddingResponse, error) {
	s.inputs = append(s.inputs, req.Input...)
	if s.err != nil {
		return nil, s.err
	}
	return &openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: s.vector}},
	}, nil
}

type stubIndex struct {
	err      error
	upserted []pinecone.Vector
}

func (s *stubIndex) Upsert(_ context.Context, req pinecone.UpsertRequest) (*pinecone.UpsertResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.upserted = append(s.upserted, req.Vectors...)
	return &pinecone.UpsertResponse{UpsertedCount: len(req.Vectors)}, nil
}

func (s *stubIndex) Delete(_ context.Context, _ pinecone.DeleteRequest) error { return nil }

func newIndexerStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func insertIndexable(t *testing.T, s store.Store, url string) *model.StartupRecord {
	t.Helper()
	rec := &model.StartupRecord{
		Name:             "Acme AI",
		Description:      "Acme AI builds agents for warehouse logistics.",
		FundingStage:     "Series A",
		FundingAmount:    "$12M",
		Location:         "San Francisco",
		Industry:         "artificial intelligence",
		SourceArticleURL: url,
	}
	_, err := s.InsertStartup(context.Background(), rec)
	require.NoError(t, err)
	return rec
}

func TestBuildInput(t *testing.T) {
	rec := &model.StartupRecord{
		Name:          "Acme AI",
		Description:   "Acme AI builds agents.",
		FundingStage:  "Series A",
		FundingAmount: "$12M",
		Location:      "San Francisco",
		Industry:      "artificial intelligence",
	}
	got := BuildInput(rec)
	assert.Equal(t, "Acme AI builds agents.. Acme AI. Series A $12M. San Francisco. artificial intelligence", got)
}

func TestBuildInputSparseRecord(t *testing.T) {
	assert.Equal(t, "Acme AI", BuildInput(&model.StartupRecord{Name: "Acme AI"}))
	assert.Empty(t, BuildInput(&model.StartupRecord{}))
}

func TestIndexUpsertsAndPersistsVectorID(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	rec := insertIndexable(t, s, "https://techcrunch.com/2025/11/20/acme-ai-raises/")

	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	index := &stubIndex{}
	ix := New(s, embedder, index, "startups")

	require.NoError(t, ix.Index(ctx, rec))

	require.Len(t, index.upserted, 1)
	assert.Equal(t, rec.ID, index.upserted[0].ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, index.upserted[0].Values)
	assert.Equal(t, "Acme AI", index.upserted[0].Metadata["name"])
	assert.Equal(t, "Series A", index.upserted[0].Metadata["funding_stage"])

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.VectorID)
}

func TestIndexEmbeddingFailureSkipsUpsert(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	rec := insertIndexable(t, s, "https://techcrunch.com/2025/11/20/acme-ai-raises/")

	embedder := &stubEmbedder{err: eris.New("embeddings: status 500")}
	index := &stubIndex{}
	ix := New(s, embedder, index, "startups")

	// A failed embedding defers the vector; the caller sees no error.
	require.NoError(t, ix.Index(ctx, rec))
	assert.Empty(t, index.upserted)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Empty(t, got.VectorID)
}

func TestIndexUpsertFailurePropagates(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	rec := insertIndexable(t, s, "https://techcrunch.com/2025/11/20/acme-ai-raises/")

	embedder := &stubEmbedder{vector: []float32{0.1}}
	index := &stubIndex{err: eris.New("index: status 400")}
	ix := New(s, embedder, index, "startups")

	err := ix.Index(ctx, rec)
	require.Error(t, err)

	got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
	require.NoError(t, err)
	assert.Empty(t, got.VectorID)
}

func TestIndexEmptyInputIsNoOp(t *testing.T) {
	s := newIndexerStore(t)
	embedder := &stubEmbedder{vector: []float32{0.1}}
	index := &stubIndex{}
	ix := New(s, embedder, index, "startups")

	require.NoError(t, ix.Index(context.Background(), &model.StartupRecord{ID: "rec-1"}))
	assert.Empty(t, embedder.inputs)
	assert.Empty(t, index.upserted)
}

func TestReindexWalksMissingVectors(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()

	a := insertIndexable(t, s, "https://techcrunch.com/2025/11/20/acme-ai-raises/")
	b := insertIndexable(t, s, "https://techcrunch.com/2025/11/21/beta-bio-seed/")

	embedder := &stubEmbedder{vector: []float32{0.5}}
	index := &stubIndex{}
	ix := New(s, embedder, index, "startups")

	indexed, err := ix.Reindex(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	assert.Len(t, index.upserted, 2)

	for _, rec := range []*model.StartupRecord{a, b} {
		got, err := s.GetStartupByURL(ctx, rec.SourceArticleURL)
		require.NoError(t, err)
		assert.NotEmpty(t, got.VectorID)
	}

	// Second pass finds nothing left to index.
	indexed, err = ix.Reindex(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, indexed)
}
