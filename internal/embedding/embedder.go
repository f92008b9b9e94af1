// Package embedding produces vector representations of text through an
// OpenAI-compatible embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"

	"convorag/internal/config"
)

// Embedder converts free text into numeric vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder delegates to the eino OpenAI embedding component.
type OpenAIEmbedder struct {
	inner *openaiembed.Embedder
}

func NewOpenAIEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding api key must be configured")
	}
	embCfg := &openaiembed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: 30 * time.Second,
	}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		embCfg.Dimensions = &dims
	}
	inner, err := openaiembed.NewEmbedder(ctx, embCfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &OpenAIEmbedder{inner: inner}, nil
}

// EmbedText embeds one trimmed, non-empty string.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("input text cannot be empty")
	}
	vectors, err := e.inner.EmbedStrings(ctx, []string{trimmed})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedding response was empty")
	}
	return vectors[0], nil
}
