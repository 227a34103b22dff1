// Package store persists the batch session snapshot and the single-slot
// GitHub credential. The redis implementations back deployed servers; the
// memory implementations back tests and redis-less development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kessler/gitstow/apps/server/internal/upload"
	"github.com/kessler/gitstow/pkg/api"
)

const (
	sessionKey    = "gitstow:session"
	credentialKey = "gitstow:credential"
)

// Compile-time check: *RedisSessionStore implements upload.SessionStore.
var _ upload.SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps the session snapshot as a JSON blob under a fixed
// key. One snapshot exists at a time — batches are single-flight.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore creates a new RedisSessionStore.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

// Save overwrites the session snapshot.
func (s *RedisSessionStore) Save(ctx context.Context, snap api.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save session %q: %w", snap.BatchID, err)
	}
	return nil
}

// Load returns the current snapshot, or nil when none is stored.
func (s *RedisSessionStore) Load(ctx context.Context) (*api.SessionSnapshot, error) {
	val, err := s.rdb.Get(ctx, sessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "no session"
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var snap api.SessionSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &snap, nil
}

// Clear removes the snapshot.
func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Compile-time check: *RedisCredentialStore implements upload.CredentialStore.
var _ upload.CredentialStore = (*RedisCredentialStore)(nil)

// RedisCredentialStore holds the bearer token in a single key. Login writes
// it, logout and 401 eviction delete it; a change is visible to the very
// next gateway call.
type RedisCredentialStore struct {
	rdb *redis.Client
}

// NewRedisCredentialStore creates a new RedisCredentialStore.
func NewRedisCredentialStore(rdb *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{rdb: rdb}
}

// Token returns the stored token, or "" when none is stored.
func (s *RedisCredentialStore) Token(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, credentialKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return val, nil
}

// Set stores the token.
func (s *RedisCredentialStore) Set(ctx context.Context, token string) error {
	if err := s.rdb.Set(ctx, credentialKey, token, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear removes the token.
func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, credentialKey).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
