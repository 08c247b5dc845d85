package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "session:token:"

// Store keeps the per-visitor access token the way the web client keeps it in
// browser storage: one slot per session, written at login, removed at logout.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed session token store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// Token returns the access token stored for the session, or "" if none exists.
func (s *Store) Token(ctx context.Context, sessionID string) (string, error) {
	token, err := s.client.Get(ctx, tokenKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

// SetToken stores the access token for the session.
func (s *Store) SetToken(ctx context.Context, sessionID, token string) error {
	if err := s.client.Set(ctx, tokenKeyPrefix+sessionID, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// ClearToken removes the access token for the session.
func (s *Store) ClearToken(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is present for the session.
// Token presence alone is treated as "authenticated": no expiry or signature
// validation happens at this layer, so a stale token routes cart operations
// to the CMS and the CMS's 401 surfaces as a mutation failure.
func (s *Store) IsAuthenticated(ctx context.Context, sessionID string) bool {
	token, err := s.Token(ctx, sessionID)
	return err == nil && token != ""
}
