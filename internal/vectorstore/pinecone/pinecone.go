// Package pinecone is a minimal REST client to a Pinecone index.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"convorag/internal/vectorstore"
)

type Config struct {
	IndexHost string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

// Index talks to one Pinecone index over its data-plane REST API.
type Index struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
}

func NewIndex(cfg Config) (*Index, error) {
	if cfg.IndexHost == "" {
		return nil, errors.New("pinecone index host required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone api key required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		host:      cfg.IndexHost,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type vectorPayload struct {
	ID       string               `json:"id"`
	Values   []float64            `json:"values"`
	Metadata vectorstore.Metadata `json:"metadata"`
}

// Upsert writes one embedding with its metadata into the index.
func (i *Index) Upsert(ctx context.Context, vectorID string, embedding []float64, meta vectorstore.Metadata) error {
	if vectorID == "" {
		return errors.New("vector id cannot be empty")
	}
	if len(embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	body := map[string]any{
		"vectors": []vectorPayload{{ID: vectorID, Values: embedding, Metadata: meta}},
	}
	if i.namespace != "" {
		body["namespace"] = i.namespace
	}
	return i.postJSON(ctx, fmt.Sprintf("%s/vectors/upsert", i.host), body, nil)
}

// Query returns the topK nearest matches with metadata, best first.
func (i *Index) Query(ctx context.Context, embedding []float64, topK int) ([]vectorstore.Match, error) {
	if len(embedding) == 0 {
		return nil, errors.New("embedding cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":          embedding,
		"topK":            topK,
		"includeMetadata": true,
	}
	if i.namespace != "" {
		body["namespace"] = i.namespace
	}
	var resp struct {
		Matches []struct {
			ID       string               `json:"id"`
			Score    float64              `json:"score"`
			Metadata vectorstore.Metadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := i.postJSON(ctx, fmt.Sprintf("%s/query", i.host), body, &resp); err != nil {
		return nil, err
	}
	matches := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, vectorstore.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

func (i *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", i.apiKey)
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
