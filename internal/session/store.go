// Package session stores dashboard sessions in Redis: session id → backend
// credential plus a cached copy of the current user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sulamboard/internal/model"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Data is the record stored per session.
type Data struct {
	BackendToken string      `json:"backend_token"`
	User         *model.User `json:"user,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Store is a Redis-backed session store.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a session store over an existing Redis client.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Create stores a new session and returns its id.
func (s *Store) Create(ctx context.Context, data *Data) (string, error) {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	id := uuid.New().String()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &data, nil
}

// SetUser refreshes the cached user on a session without touching its TTL
// countdown from the stored credential's point of view.
func (s *Store) SetUser(ctx context.Context, id string, user *model.User) error {
	data, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	data.User = user
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
