// Package booking detects interview-booking intent in conversation and
// extracts the structured fields through the chat model.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"convorag/internal/models"
	"convorag/internal/service/ai"
	"convorag/internal/service/rag"
)

// intentKeywords is the fixed vocabulary matched case-insensitively against
// the latest user query.
var intentKeywords = []string{
	"book", "schedule", "appointment", "interview",
	"meeting", "reserve", "set up", "arrange",
}

// jsonObject captures the first brace-delimited span in free-text model output.
var jsonObject = regexp.MustCompile(`\{[^{}]*\}`)

// Extractor turns conversation history into booking candidates. Best-effort:
// the only enforced contract is that a returned candidate has all four fields.
type Extractor struct {
	model ai.ChatModel
}

func NewExtractor(model ai.ChatModel) *Extractor {
	return &Extractor{model: model}
}

// DetectIntent reports whether the query matches the booking vocabulary.
func DetectIntent(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Extract submits the full conversation to the model and parses the reply.
// Returns nil when the model declines, the reply has no parseable JSON object
// or any required field is absent.
func (e *Extractor) Extract(ctx context.Context, history []models.Message) *models.Booking {
	if len(history) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(`Analyze this conversation and extract interview booking information.
Return ONLY a JSON object with these fields if all are present: name, email, date, time.
If any information is missing, return an empty JSON object {}.

Conversation:
%s

Extracted booking info (JSON only):`, rag.FormatHistory(history))

	reply, err := e.model.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: prompt},
	})
	if err != nil {
		log.Printf("booking extraction: %v", err)
		return nil
	}
	return ParseCandidate(reply)
}

// ParseCandidate scans free text for a JSON object holding the booking fields.
func ParseCandidate(reply string) *models.Booking {
	span := jsonObject.FindString(reply)
	if span == "" {
		return nil
	}
	var fields struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Date  string `json:"date"`
		Time  string `json:"time"`
	}
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		log.Printf("booking extraction: parse model reply: %v", err)
		return nil
	}
	candidate, err := models.NewBooking(fields.Name, fields.Email, fields.Date, fields.Time)
	if err != nil {
		return nil
	}
	return candidate
}
