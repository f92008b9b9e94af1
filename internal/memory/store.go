// Package memory keeps per-session conversation history in an expiring cache.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"convorag/internal/models"
	"convorag/internal/redis"
)

// Cache is the subset of the redis client the store needs; tests substitute a
// fake implementation.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// DefaultTTL is applied when no history TTL is configured.
const DefaultTTL = 24 * time.Hour

// Store reads and writes whole-history values keyed by session. Appends are
// read-modify-write and not atomic across concurrent writers for the same
// session: last write wins on the full-history key.
type Store struct {
	cache Cache
	ttl   time.Duration
}

func NewStore(cache Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("chat_history:%s", sessionID)
}

// GetHistory returns the ordered messages for a session. Transport or decode
// failures degrade to an empty history and are only logged.
func (s *Store) GetHistory(ctx context.Context, sessionID string) []models.Message {
	raw, err := s.cache.Get(ctx, sessionKey(sessionID))
	if err != nil || raw == "" {
		if err != nil && !isCacheMiss(err) {
			log.Printf("get history for session %s: %v", sessionID, err)
		}
		return nil
	}
	var history []models.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		log.Printf("decode history for session %s: %v", sessionID, err)
		return nil
	}
	return history
}

// AppendMessage fetches the current history, appends the message and persists
// the whole list back, resetting the TTL. Write failures are a logged no-op.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role models.Role, content string) {
	history := s.GetHistory(ctx, sessionID)
	history = append(history, models.Message{Role: role, Content: content})
	s.saveHistory(ctx, sessionID, history)
}

func (s *Store) saveHistory(ctx context.Context, sessionID string, history []models.Message) {
	data, err := json.Marshal(history)
	if err != nil {
		log.Printf("encode history for session %s: %v", sessionID, err)
		return
	}
	if err := s.cache.Set(ctx, sessionKey(sessionID), string(data), s.ttl); err != nil {
		log.Printf("save history for session %s: %v", sessionID, err)
	}
}

// ClearHistory deletes the session key. Idempotent; absence is not an error.
func (s *Store) ClearHistory(ctx context.Context, sessionID string) {
	if err := s.cache.Del(ctx, sessionKey(sessionID)); err != nil {
		log.Printf("clear history for session %s: %v", sessionID, err)
	}
}

func isCacheMiss(err error) bool {
	return errors.Is(err, redis.ErrCacheMiss)
}
