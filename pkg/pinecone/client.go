// Package pinecone provides a client for the Pinecone vector index
// data-plane API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client performs vector operations against a Pinecone index host.
type Client interface {
	Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error)
	Delete(ctx context.Context, req DeleteRequest) error
}

// Vector is a single vector with metadata.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// UpsertRequest is the request body for POST /vectors/upsert.
type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

// UpsertResponse is the response from POST /vectors/upsert.
type UpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// DeleteRequest is the request body for POST /vectors/delete.
type DeleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey    string
	indexHost string
	http      *http.Client
}

// NewClient creates a Pinecone data-plane client for the given index
// host, e.g. "https://startups-abc123.svc.us-east-1.pinecone.io".
func NewClient(apiKey, indexHost string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		indexHost: indexHost,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Upsert(ctx context.Context, req UpsertRequest) (*UpsertResponse, error) {
	body, status, err := c.post(ctx, "/vectors/upsert", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("pinecone: upsert unexpected status %d: %s", status, string(body))
	}

	var result UpsertResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "pinecone: unmarshal upsert response")
	}
	return &result, nil
}

func (c *httpClient) Delete(ctx context.Context, req DeleteRequest) error {
	body, status, err := c.post(ctx, "/vectors/delete", req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return eris.Errorf("pinecone: delete unexpected status %d: %s", status, string(body))
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pinecone: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexHost+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, eris.Wrap(err, "pinecone: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pinecone: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "pinecone: read response")
	}

	return respBody, resp.StatusCode, nil
}
