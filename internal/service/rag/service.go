// Package rag composes retrieval and generation into the answering pipeline.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"convorag/internal/embedding"
	"convorag/internal/models"
	"convorag/internal/service/ai"
	"convorag/internal/vectorstore"
)

const (
	// NoContextSentinel stands in for retrieved context when the index
	// returns no matches.
	NoContextSentinel = "No relevant context found."

	// FallbackAnswer is returned whenever any stage of the pipeline fails.
	FallbackAnswer = "I apologize, but I encountered an error processing your query. Please try again."

	systemInstruction = "You are a helpful AI assistant."
)

// Service answers queries with retrieved context and recent history.
type Service struct {
	embedder      embedding.Embedder
	index         vectorstore.Index
	model         ai.ChatModel
	topK          int
	historyWindow int
}

func NewService(embedder embedding.Embedder, index vectorstore.Index, model ai.ChatModel, topK, historyWindow int) *Service {
	if topK <= 0 {
		topK = 5
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Service{
		embedder:      embedder,
		index:         index,
		model:         model,
		topK:          topK,
		historyWindow: historyWindow,
	}
}

// Answer embeds the query, retrieves the nearest chunks, builds the prompt and
// invokes the chat model. Failures never propagate; the caller always gets an
// answer string.
func (s *Service) Answer(ctx context.Context, query string, history []models.Message) string {
	queryEmbedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		log.Printf("rag pipeline: embed query: %v", err)
		return FallbackAnswer
	}

	matches, err := s.index.Query(ctx, queryEmbedding, s.topK)
	if err != nil {
		log.Printf("rag pipeline: vector query: %v", err)
		return FallbackAnswer
	}

	answer, err := s.model.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: systemInstruction},
		{Role: schema.User, Content: s.buildPrompt(query, history, matches)},
	})
	if err != nil {
		log.Printf("rag pipeline: generate answer: %v", err)
		return FallbackAnswer
	}
	return answer
}

func (s *Service) buildPrompt(query string, history []models.Message, matches []vectorstore.Match) string {
	var contextChunks []string
	for _, m := range matches {
		if m.Metadata.Text != "" {
			contextChunks = append(contextChunks, m.Metadata.Text)
		}
	}
	contextText := NoContextSentinel
	if len(contextChunks) > 0 {
		contextText = strings.Join(contextChunks, "\n\n")
	}

	historySection := ""
	if windowed := lastN(history, s.historyWindow); len(windowed) > 0 {
		historySection = fmt.Sprintf("Conversation History:\n%s\n", FormatHistory(windowed))
	}

	return fmt.Sprintf(`You are a helpful AI assistant. Use the provided context to answer the user's question.
If the user is trying to book an interview, collect their name, email, date, and time.

%sContext from documents:
%s

Current Question: %s

Answer (be helpful and conversational):`, historySection, contextText, query)
}

// FormatHistory renders messages as "Role: content" lines.
func FormatHistory(history []models.Message) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(string(msg.Role)), msg.Content))
	}
	return strings.Join(lines, "\n")
}

func lastN(history []models.Message, n int) []models.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
