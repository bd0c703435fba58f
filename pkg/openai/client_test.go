package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmbedding_Success(t *testing.T) {
	t.Parallel()

	want := EmbeddingResponse{
		Model: "text-embedding-3-small",
		Data: []Embedding{
			{Index: 0, Embedding: []float32{0.1, -0.2, 0.3}},
		},
		Usage: Usage{PromptTokens: 12, TotalTokens: 12},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"Acme raised $5M"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.CreateEmbedding(context.Background(), EmbeddingRequest{
		Input: []string{"Acme raised $5M"},
	})

	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, []float32{0.1, -0.2, 0.3}, got.Data[0].Embedding)
	assert.Equal(t, 12, got.Usage.TotalTokens)
}

func TestCreateEmbedding_ModelOverride(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-large", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EmbeddingResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("text-embedding-3-large"))
	_, err := client.CreateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"x"}})

	require.NoError(t, err)
}

func TestCreateEmbedding_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"x"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCreateEmbedding_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.CreateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"x"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
