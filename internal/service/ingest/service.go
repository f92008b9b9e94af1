// Package ingest runs the document pipeline: store upload, extract text,
// chunk, embed, index and record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	pdfparser "github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/google/uuid"

	"convorag/internal/chunker"
	"convorag/internal/embedding"
	"convorag/internal/models"
	"convorag/internal/service/records"
	"convorag/internal/vectorstore"
)

// Validation failures surfaced to the HTTP layer as 400s.
var (
	ErrUnsupportedFile = errors.New("only .pdf and .txt files are supported")
	ErrBadStrategy     = errors.New("chunking_strategy must be one of: fixed, sentence")
	ErrEmptyText       = errors.New("no text content could be extracted from the file")
	ErrNoChunks        = errors.New("no chunks were generated from the text")
)

// Result summarizes one ingestion run.
type Result struct {
	Document    *models.Document
	ChunksCount int
}

// Service drives the ingestion pipeline. Per-chunk embedding or indexing
// failures are logged and skipped; there is no rollback of already-upserted
// vectors or committed rows.
type Service struct {
	records  *records.Service
	embedder embedding.Embedder
	index    vectorstore.Index
	loader   *file.FileLoader
	fileBase string
}

func NewService(ctx context.Context, recordsSvc *records.Service, embedder embedding.Embedder, index vectorstore.Index, fileBase string) (*Service, error) {
	pdfParser, err := pdfparser.NewPDFParser(ctx, &pdfparser.Config{})
	if err != nil {
		return nil, fmt.Errorf("init pdf parser: %w", err)
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".pdf": pdfParser,
		},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Service{
		records:  recordsSvc,
		embedder: embedder,
		index:    index,
		loader:   loader,
		fileBase: fileBase,
	}, nil
}

// Ingest validates and processes one uploaded document. Non-transactional:
// a partially indexed document is a terminal state, not retried.
func (s *Service) Ingest(ctx context.Context, filename string, content []byte, strategy string) (*Result, error) {
	if !allowedExtension(filename) {
		return nil, ErrUnsupportedFile
	}
	if strategy != chunker.StrategyFixed && strategy != chunker.StrategySentence {
		return nil, ErrBadStrategy
	}

	storedPath, err := s.storeUpload(filename, content)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	text, err := s.extractText(ctx, storedPath)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	var chunks []string
	if strategy == chunker.StrategyFixed {
		chunks, err = chunker.Fixed(text, chunker.DefaultChunkSize, chunker.DefaultOverlap)
	} else {
		chunks, err = chunker.Sentence(text, chunker.DefaultMaxSentences)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	doc, err := s.records.CreateDocument(ctx, filename, strategy, storedPath)
	if err != nil {
		return nil, err
	}

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := s.indexChunk(ctx, doc, i, chunk); err != nil {
			log.Printf("ingest %s: chunk %d skipped: %v", doc.ID, i, err)
		}
	}

	log.Printf("ingested document %s (%s) with %d chunks", doc.ID, filename, len(chunks))
	return &Result{Document: doc, ChunksCount: len(chunks)}, nil
}

func (s *Service) indexChunk(ctx context.Context, doc *models.Document, index int, chunk string) error {
	vectorID := fmt.Sprintf("%s_chunk_%d_%s", doc.ID, index, uuid.NewString()[:8])

	vector, err := s.embedder.EmbedText(ctx, chunk)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	meta := vectorstore.Metadata{
		Text:       chunk,
		DocumentID: doc.ID,
		ChunkIndex: index,
		Filename:   doc.Filename,
	}
	if err := s.index.Upsert(ctx, vectorID, vector, meta); err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	if _, err := s.records.AddChunk(ctx, models.Chunk{
		DocumentID: doc.ID,
		ChunkIndex: index,
		Content:    chunk,
		VectorID:   vectorID,
	}); err != nil {
		return fmt.Errorf("record chunk: %w", err)
	}
	return nil
}

// storeUpload keeps the raw file under fileBase with a collision-free name.
func (s *Service) storeUpload(filename string, content []byte) (string, error) {
	if err := os.MkdirAll(s.fileBase, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename))
	path := filepath.Join(s.fileBase, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) extractText(ctx context.Context, path string) (string, error) {
	docs, err := s.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	for _, d := range docs {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(content)
	}
	return builder.String(), nil
}

func allowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}
