package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tomorrowplanner/pkg/domain"
)

const defaultSessionPrefix = "planner:session"

// MemorySessionStore keeps conversation sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
}

// NewMemorySessionStore constructs an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]domain.Session)}
}

// Get returns the user's open session, if any.
func (s *MemorySessionStore) Get(userID int64) (domain.Session, bool, error) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()
	return session, ok, nil
}

// Put stores or replaces the user's session.
func (s *MemorySessionStore) Put(session domain.Session) error {
	s.mu.Lock()
	s.sessions[session.UserID] = session
	s.mu.Unlock()
	return nil
}

// Delete discards the user's session.
func (s *MemorySessionStore) Delete(userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

// PruneIdle drops sessions idle longer than ttl and reports how many were
// removed. A non-positive ttl disables pruning.
func (s *MemorySessionStore) PruneIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-ttl)
	pruned := 0
	s.mu.Lock()
	for userID, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
			pruned++
		}
	}
	s.mu.Unlock()
	return pruned
}

// RedisSessionStore keeps conversation sessions in Redis so multiple
// processes can share the flow state. Idle expiry rides on key TTLs.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password, prefix string, ttl time.Duration) *RedisSessionStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the user's open session, if any.
func (s *RedisSessionStore) Get(userID int64) (domain.Session, bool, error) {
	ctx, cancel := sessionContext()
	defer cancel()
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

// Put stores or replaces the user's session and refreshes its TTL.
func (s *RedisSessionStore) Put(session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ctx, cancel := sessionContext()
	defer cancel()
	if err := s.client.Set(ctx, s.key(session.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete discards the user's session.
func (s *RedisSessionStore) Delete(userID int64) error {
	ctx, cancel := sessionContext()
	defer cancel()
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) key(userID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, userID)
}

func sessionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}
