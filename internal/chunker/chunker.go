// Package chunker splits raw document text into ordered chunks for embedding.
// Both strategies are deterministic and side-effect free.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy names accepted by the ingestion endpoint.
const (
	StrategyFixed    = "fixed"
	StrategySentence = "sentence"
)

const (
	DefaultChunkSize    = 400
	DefaultOverlap      = 40
	DefaultMaxSentences = 5
)

// sentence boundary: terminal punctuation followed by whitespace
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Fixed slices text into windows of size runes advancing by size-overlap, so
// consecutive chunks share overlap runes. The final chunk may be shorter.
func Fixed(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("overlap (%d) must be less than chunk size (%d)", overlap, size)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes)-overlap; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// Sentence splits text on sentence boundaries (., !, ? followed by
// whitespace), drops whitespace-only sentences and groups consecutive
// sentences into chunks of at most maxSentences joined by single spaces.
func Sentence(text string, maxSentences int) ([]string, error) {
	if maxSentences < 1 {
		return nil, fmt.Errorf("max sentences must be at least 1, got %d", maxSentences)
	}
	if text == "" {
		return nil, nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []string
	for i := 0; i < len(sentences); i += maxSentences {
		end := i + maxSentences
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
	}
	return chunks, nil
}

// splitSentences cuts text after each boundary match, keeping the terminal
// punctuation with the preceding sentence and consuming the whitespace.
func splitSentences(text string) []string {
	bounds := sentenceBoundary.FindAllStringIndex(text, -1)
	var sentences []string
	prev := 0
	for _, b := range bounds {
		s := text[prev : b[0]+1]
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
		prev = b[1]
	}
	if tail := text[prev:]; strings.TrimSpace(tail) != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
