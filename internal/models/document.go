package models

import "time"

// Document records one ingested file and the strategy used to split it.
type Document struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	ChunkingStrategy string    `json:"chunking_strategy"`
	StoredPath       string    `json:"-"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Chunk is the unit of embedding and retrieval. VectorID ties the row to the
// corresponding entry in the vector index.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	VectorID   string `json:"vector_id"`
}
