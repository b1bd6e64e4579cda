package chatbot

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ConsentStore remembers which users allowed the assistant to read their data.
// It is shared by every request.
type ConsentStore interface {
	HasConsent(ctx context.Context, userID int64) (bool, error)
	Grant(ctx context.Context, userID int64) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryConsentStore keeps consent in process memory
type MemoryConsentStore struct {
	mu      sync.RWMutex
	granted map[int64]bool
}

// NewMemoryConsentStore creates an empty in-memory consent store
func NewMemoryConsentStore() *MemoryConsentStore {
	return &MemoryConsentStore{granted: make(map[int64]bool)}
}

// HasConsent reports whether the user granted consent
func (s *MemoryConsentStore) HasConsent(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[userID], nil
}

// Grant records consent for the user
func (s *MemoryConsentStore) Grant(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted[userID] = true
	return nil
}

// Clear forgets the user's consent
func (s *MemoryConsentStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.granted, userID)
	return nil
}

// RedisConsentStore keeps consent in Redis so it survives restarts and is
// shared between instances. Keys never expire; only Clear revokes consent.
type RedisConsentStore struct {
	client *redis.Client
}

// NewRedisConsentStore creates a consent store on top of an existing client
func NewRedisConsentStore(client *redis.Client) *RedisConsentStore {
	return &RedisConsentStore{client: client}
}

func consentKey(userID int64) string {
	return fmt.Sprintf("chatbot:consent:%d", userID)
}

// HasConsent reports whether the user's consent key exists
func (s *RedisConsentStore) HasConsent(ctx context.Context, userID int64) (bool, error) {
	n, err := s.client.Exists(ctx, consentKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read consent: %w", err)
	}
	return n > 0, nil
}

// Grant sets the user's consent key
func (s *RedisConsentStore) Grant(ctx context.Context, userID int64) error {
	if err := s.client.Set(ctx, consentKey(userID), "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to store consent: %w", err)
	}
	return nil
}

// Clear deletes the user's consent key
func (s *RedisConsentStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, consentKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear consent: %w", err)
	}
	return nil
}
