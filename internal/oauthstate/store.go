package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Store issues one-time state nonces for the OAuth redirect flow and
// consumes them exactly once when the browser comes back.
type Store interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) (bool, error)
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RedisStore keeps nonces in Redis under "oauthstate:<state>" with a TTL, so
// the check holds across replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed state store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "oauthstate:"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) Issue(ctx context.Context) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+state, "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

func (s *RedisStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.client.Del(ctx, s.prefix+state).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore is the single-process fallback when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{states: map[string]time.Time{}, ttl: ttl}
}

func (s *MemoryStore) Issue(ctx context.Context) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// opportunistic sweep of expired entries
	now := time.Now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
	return state, nil
}

func (s *MemoryStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	return time.Now().Before(exp), nil
}
