// Package vectorstore defines the nearest-neighbor index the retrieval
// pipeline runs against.
package vectorstore

import "context"

// Metadata attached to every stored vector.
type Metadata struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
}

// Match is one similarity-search hit, ordered by descending score.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Index persists embeddings and supports similarity search.
type Index interface {
	Upsert(ctx context.Context, vectorID string, embedding []float64, meta Metadata) error
	Query(ctx context.Context, embedding []float64, topK int) ([]Match, error)
}
