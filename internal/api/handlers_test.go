package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"

	"convorag/internal/config"
	"convorag/internal/memory"
	"convorag/internal/models"
	"convorag/internal/service/booking"
	"convorag/internal/service/ingest"
	"convorag/internal/service/rag"
	"convorag/internal/service/records"
	"convorag/internal/storage"
	"convorag/internal/vectorstore"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1, 2}, nil
}

type fakeIndex struct {
	upserts map[string]vectorstore.Metadata
	matches []vectorstore.Match
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserts: make(map[string]vectorstore.Metadata)}
}

func (f *fakeIndex) Upsert(_ context.Context, vectorID string, _ []float64, meta vectorstore.Metadata) error {
	f.upserts[vectorID] = meta
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float64, _ int) ([]vectorstore.Match, error) {
	return f.matches, nil
}

// scriptedModel answers chat prompts with chatReply and extraction prompts
// with extractReply, mirroring the two prompt shapes the handlers produce.
type scriptedModel struct {
	chatReply    string
	extractReply string
}

func (m *scriptedModel) Generate(_ context.Context, messages []*schema.Message) (string, error) {
	prompt := messages[len(messages)-1].Content
	if strings.Contains(prompt, "Extracted booking info") {
		return m.extractReply, nil
	}
	return m.chatReply, nil
}

type testEnv struct {
	router *gin.Engine
	db     *sql.DB
	cache  *fakeCache
	index  *fakeIndex
	model  *scriptedModel
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	cache := newFakeCache()
	index := newFakeIndex()
	model := &scriptedModel{chatReply: "the assistant answer", extractReply: "{}"}

	recordsSvc := records.NewService(db)
	memoryStore := memory.NewStore(cache, time.Hour)
	ragSvc := rag.NewService(&fakeEmbedder{}, index, model, 5, 5)
	extractor := booking.NewExtractor(model)
	ingestSvc, err := ingest.NewService(context.Background(), recordsSvc, &fakeEmbedder{}, index, t.TempDir())
	if err != nil {
		t.Fatalf("init ingest service: %v", err)
	}

	handler := NewHandler(ingestSvc, recordsSvc, ragSvc, memoryStore, extractor, 1<<20)

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testEnv{router: router, db: db, cache: cache, index: index, model: model}
}

// fakeCache backs the memory store in tests.
type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, router *gin.Engine, filename, content, strategy string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if strategy != "" {
		if err := writer.WriteField("chunking_strategy", strategy); err != nil {
			t.Fatalf("write strategy field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestIngestEndToEnd(t *testing.T) {
	env := newTestServer(t)

	content := strings.Repeat("a", 2000)
	rec := doUpload(t, env.router, "notes.txt", content, "fixed")
	assertStatus(t, rec, http.StatusCreated)

	var body struct {
		DocumentID       string `json:"document_id"`
		Filename         string `json:"filename"`
		ChunksCount      int    `json:"chunks_count"`
		ChunkingStrategy string `json:"chunking_strategy"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.DocumentID == "" {
		t.Fatalf("expected document id")
	}
	if body.ChunksCount != 6 {
		t.Fatalf("chunks_count: want 6 got %d", body.ChunksCount)
	}
	if body.Filename != "notes.txt" || body.ChunkingStrategy != "fixed" {
		t.Fatalf("unexpected response: %+v", body)
	}

	chunks, err := records.NewService(env.db).ListChunks(context.Background(), body.DocumentID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 6 {
		t.Fatalf("chunk rows: want 6 got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk indices not 0..5: %+v", chunks)
		}
		if _, ok := env.index.upserts[c.VectorID]; !ok {
			t.Fatalf("vector %s not upserted", c.VectorID)
		}
	}
}

func TestIngestValidation(t *testing.T) {
	env := newTestServer(t)

	rec := doUpload(t, env.router, "notes.docx", "hello there", "fixed")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doUpload(t, env.router, "notes.txt", "hello there. more text here.", "semantic")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doUpload(t, env.router, "notes.txt", "   \n\t ", "fixed")
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doUpload(t, env.router, "notes.txt", strings.Repeat("x", 2<<20), "fixed")
	assertStatus(t, rec, http.StatusRequestEntityTooLarge)

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(""))
	rec2 := httptest.NewRecorder()
	env.router.ServeHTTP(rec2, req)
	assertStatus(t, rec2, http.StatusBadRequest)
}

func TestIngestSentenceStrategy(t *testing.T) {
	env := newTestServer(t)

	text := strings.TrimSpace(strings.Repeat("This is a sentence. ", 12))
	rec := doUpload(t, env.router, "notes.txt", text, "sentence")
	assertStatus(t, rec, http.StatusCreated)

	var body struct {
		ChunksCount int `json:"chunks_count"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	// 12 sentences grouped five at a time
	if body.ChunksCount != 3 {
		t.Fatalf("chunks_count: want 3 got %d", body.ChunksCount)
	}
}

func TestListDocuments(t *testing.T) {
	env := newTestServer(t)

	for i := 0; i < 3; i++ {
		rec := doUpload(t, env.router, "doc.txt", strings.Repeat("b", 500), "fixed")
		assertStatus(t, rec, http.StatusCreated)
	}

	rec := doJSONRequest(t, env.router, http.MethodGet, "/ingest/documents?skip=1&limit=2", nil)
	assertStatus(t, rec, http.StatusOK)
	var docs []models.Document
	decodeJSON(t, rec.Body.Bytes(), &docs)
	if len(docs) != 2 {
		t.Fatalf("documents page: want 2 got %d", len(docs))
	}
}

func TestChatAccumulatesHistory(t *testing.T) {
	env := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
			"session_id": "sess-1",
			"query":      "what does the document say",
		})
		assertStatus(t, rec, http.StatusOK)
		var body struct {
			Answer string `json:"answer"`
		}
		decodeJSON(t, rec.Body.Bytes(), &body)
		if body.Answer != "the assistant answer" {
			t.Fatalf("answer: %q", body.Answer)
		}
	}

	rec := doJSONRequest(t, env.router, http.MethodGet, "/chat/history/sess-1", nil)
	assertStatus(t, rec, http.StatusOK)
	var histBody struct {
		SessionID    string           `json:"session_id"`
		History      []models.Message `json:"history"`
		MessageCount int              `json:"message_count"`
	}
	decodeJSON(t, rec.Body.Bytes(), &histBody)
	if histBody.MessageCount != 4 || len(histBody.History) != 4 {
		t.Fatalf("history length: want 4 got %d", len(histBody.History))
	}
	wantRoles := []models.Role{models.RoleUser, models.RoleAssistant, models.RoleUser, models.RoleAssistant}
	for i, msg := range histBody.History {
		if msg.Role != wantRoles[i] {
			t.Fatalf("message %d role: want %s got %s", i, wantRoles[i], msg.Role)
		}
	}
}

func TestChatValidation(t *testing.T) {
	env := newTestServer(t)

	rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "", "query": "hello",
	})
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "s1", "query": "",
	})
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestChatPersistsCompleteBooking(t *testing.T) {
	env := newTestServer(t)
	env.model.extractReply = `{"name":"Ada Lovelace","email":"ada@example.com","date":"2025-01-01","time":"10:30"}`

	rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "sess-b",
		"query":      "I'd like to book an interview",
	})
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Answer  string `json:"answer"`
		Booking *struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Date  string `json:"date"`
			Time  string `json:"time"`
		} `json:"booking"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Booking == nil || body.Booking.ID == "" {
		t.Fatalf("expected booking in response: %s", rec.Body.String())
	}
	if !strings.Contains(body.Answer, "Booking ID: "+body.Booking.ID) {
		t.Fatalf("answer missing confirmation: %q", body.Answer)
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE email = ?`, "ada@example.com").Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 1 {
		t.Fatalf("booking rows: want 1 got %d", count)
	}
}

func TestChatWithoutIntentSkipsBooking(t *testing.T) {
	env := newTestServer(t)
	env.model.extractReply = `{"name":"A","email":"a@b.com","date":"2025-01-01","time":"09:00"}`

	rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "sess-n",
		"query":      "what's the refund policy",
	})
	assertStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), `"booking"`) {
		t.Fatalf("unexpected booking in response: %s", rec.Body.String())
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 0 {
		t.Fatalf("booking rows: want 0 got %d", count)
	}
}

func TestChatIncompleteExtractionYieldsNoBooking(t *testing.T) {
	env := newTestServer(t)
	env.model.extractReply = `sure, here: {"name":"A","email":"a@b.com","date":"2025-01-01"}`

	rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "sess-i",
		"query":      "schedule a meeting please",
	})
	assertStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), `"booking"`) {
		t.Fatalf("unexpected booking in response: %s", rec.Body.String())
	}
}

func TestClearHistory(t *testing.T) {
	env := newTestServer(t)

	rec := doJSONRequest(t, env.router, http.MethodPost, "/chat", map[string]string{
		"session_id": "sess-c",
		"query":      "hello there",
	})
	assertStatus(t, rec, http.StatusOK)

	rec = doJSONRequest(t, env.router, http.MethodDelete, "/chat/history/sess-c", nil)
	assertStatus(t, rec, http.StatusNoContent)

	rec = doJSONRequest(t, env.router, http.MethodGet, "/chat/history/sess-c", nil)
	assertStatus(t, rec, http.StatusOK)
	var histBody struct {
		MessageCount int `json:"message_count"`
	}
	decodeJSON(t, rec.Body.Bytes(), &histBody)
	if histBody.MessageCount != 0 {
		t.Fatalf("expected empty history, got %d messages", histBody.MessageCount)
	}
}
