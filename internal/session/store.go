package session

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sketchwars/internal/logger"
)

// Keys used in the state store.
const (
	keyPlayerID      = "playerId"
	keyIdentityToken = "identityToken"
	keyAIMutex       = "aiInferenceMutex"
)

// MemoryStore keeps client state for the lifetime of the process. Identity
// cached here does not survive a restart, so a restarted client rejoins as
// a new player once the server-side grace period has passed.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// RedisStore persists client state in redis so a headless client can
// resume its seat after a restart, the way a browser client survives a
// page reload. Entries expire with the session TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:" + sessionID + ":",
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("redis store get failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (s *RedisStore) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		logger.Warn("redis store set failed", "key", key, "error", err)
	}
}

func (s *RedisStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		logger.Warn("redis store delete failed", "key", key, "error", err)
	}
}
