package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"convorag/internal/memory"
	"convorag/internal/models"
	"convorag/internal/service/booking"
	"convorag/internal/service/ingest"
	"convorag/internal/service/records"
)

// Answering is the slice of the rag service the chat handler needs.
type Answering interface {
	Answer(ctx context.Context, query string, history []models.Message) string
}

// Extracting yields booking candidates from conversation history.
type Extracting interface {
	Extract(ctx context.Context, history []models.Message) *models.Booking
}

// Handler wires HTTP routes to the ingestion, retrieval and booking services.
type Handler struct {
	ingest    *ingest.Service
	records   *records.Service
	rag       Answering
	memory    *memory.Store
	extractor Extracting
	maxUpload int64
}

// NewHandler constructs a Handler instance.
func NewHandler(ingestSvc *ingest.Service, recordsSvc *records.Service, ragSvc Answering, memoryStore *memory.Store, extractor Extracting, maxUpload int64) *Handler {
	return &Handler{
		ingest:    ingestSvc,
		records:   recordsSvc,
		rag:       ragSvc,
		memory:    memoryStore,
		extractor: extractor,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/ingest", h.ingestDocument)
	router.GET("/ingest/documents", h.listDocuments)
	router.POST("/chat", h.chat)
	router.GET("/chat/history/:session_id", h.getHistory)
	router.DELETE("/chat/history/:session_id", h.clearHistory)
}

func (h *Handler) ingestDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	strategy := c.PostForm("chunking_strategy")
	if strategy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chunking_strategy is required"})
		return
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file size exceeds maximum of %d bytes", h.maxUpload),
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), fileHeader.Filename, content, strategy)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFile),
			errors.Is(err, ingest.ErrBadStrategy),
			errors.Is(err, ingest.ErrEmptyText),
			errors.Is(err, ingest.ErrNoChunks):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("ingest %s: %v", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest document"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id":       result.Document.ID,
		"filename":          result.Document.Filename,
		"chunks_count":      result.ChunksCount,
		"chunking_strategy": result.Document.ChunkingStrategy,
		"message":           "Document ingested successfully",
	})
}

func (h *Handler) listDocuments(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	docs, err := h.records.ListDocuments(c.Request.Context(), skip, limit)
	if err != nil {
		log.Printf("list documents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve documents"})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and query are required"})
		return
	}
	ctx := c.Request.Context()

	history := h.memory.GetHistory(ctx, req.SessionID)
	h.memory.AppendMessage(ctx, req.SessionID, models.RoleUser, req.Query)

	answer := h.rag.Answer(ctx, req.Query, history)
	h.memory.AppendMessage(ctx, req.SessionID, models.RoleAssistant, answer)

	var bookingBody gin.H
	if booking.DetectIntent(req.Query) {
		updated := h.memory.GetHistory(ctx, req.SessionID)
		if candidate := h.extractor.Extract(ctx, updated); candidate != nil {
			saved, err := h.records.SaveBooking(ctx, candidate)
			if err != nil {
				log.Printf("save booking for session %s: %v", req.SessionID, err)
				answer += "\n\nNote: There was an issue saving your booking. Please try again."
			} else {
				log.Printf("booking saved: %s", saved.ID)
				answer += fmt.Sprintf("\n\n✓ Interview booked successfully! Booking ID: %s", saved.ID)
				bookingBody = gin.H{
					"id":      saved.ID,
					"name":    saved.Name,
					"email":   saved.Email,
					"date":    saved.Date,
					"time":    saved.Time,
					"message": "Interview booked successfully",
				}
			}
		}
	}

	resp := gin.H{"answer": answer}
	if bookingBody != nil {
		resp["booking"] = bookingBody
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	history := h.memory.GetHistory(c.Request.Context(), sessionID)
	if history == nil {
		history = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":    sessionID,
		"history":       history,
		"message_count": len(history),
	})
}

func (h *Handler) clearHistory(c *gin.Context) {
	h.memory.ClearHistory(c.Request.Context(), c.Param("session_id"))
	c.Status(http.StatusNoContent)
}
