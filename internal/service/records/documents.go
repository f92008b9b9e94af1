package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"convorag/internal/models"
)

// CreateDocument inserts a new document record and returns it with generated
// ID and upload timestamp.
func (s *Service) CreateDocument(ctx context.Context, filename, strategy, storedPath string) (*models.Document, error) {
	if filename == "" {
		return nil, errors.New("filename is required")
	}
	doc := &models.Document{
		ID:               uuid.NewString(),
		Filename:         filename,
		ChunkingStrategy: strategy,
		StoredPath:       storedPath,
		UploadedAt:       time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, chunking_strategy, stored_path, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.ChunkingStrategy, doc.StoredPath, doc.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns ingested documents with offset/limit pagination.
func (s *Service) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, chunking_strategy, uploaded_at FROM documents ORDER BY uploaded_at DESC LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.ChunkingStrategy, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// AddChunk inserts one chunk row referencing its vector index entry.
func (s *Service) AddChunk(ctx context.Context, chunk models.Chunk) (*models.Chunk, error) {
	if chunk.DocumentID == "" {
		return nil, errors.New("document_id is required")
	}
	if chunk.VectorID == "" {
		return nil, errors.New("vector_id is required")
	}
	chunk.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, content, vector_id) VALUES (?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.VectorID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chunk: %w", err)
	}
	return &chunk, nil
}

// ListChunks returns a document's chunks ordered by index.
func (s *Service) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, content, vector_id FROM chunks WHERE document_id = ? ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.VectorID); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
