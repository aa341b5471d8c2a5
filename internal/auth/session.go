package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/office-seat-booking/internal/utils"
)

// SessionStore keeps server-side sessions keyed by an opaque id.
type SessionStore interface {
	Create(ctx context.Context, id Identity, ttl time.Duration) (string, error)
	Get(ctx context.Context, sid string) (Identity, error)
	Delete(ctx context.Context, sid string) error
}

func newSessionID() (string, error) {
	return utils.RandomHex(32)
}

// RedisSessionStore stores sessions as JSON values with a Redis TTL, so
// every server instance sees the same sessions.
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSessionStore returns a store writing keys under "session:".
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: "session:"}
}

func (s *RedisSessionStore) Create(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := s.rdb.SetEx(ctx, s.prefix+sid, body, ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sid, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sid string) (Identity, error) {
	body, err := s.rdb.Get(ctx, s.prefix+sid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return Identity{}, ErrSessionNotFound
	}
	return id, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, s.prefix+sid).Err()
}

// MemorySessionStore keeps sessions in process memory.  It is used when
// Redis is unreachable and in tests; sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	id        Identity
	expiresAt time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *MemorySessionStore) Create(_ context.Context, id Identity, ttl time.Duration) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.sessions {
		if !now.Before(v.expiresAt) {
			delete(s.sessions, k)
		}
	}
	s.sessions[sid] = memorySession{id: id, expiresAt: now.Add(ttl)}
	return sid, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sid string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sessions[sid]
	if !ok {
		return Identity{}, ErrSessionNotFound
	}
	if !s.now().Before(v.expiresAt) {
		delete(s.sessions, sid)
		return Identity{}, ErrSessionNotFound
	}
	return v.id, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	return nil
}
