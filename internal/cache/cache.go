package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/carscout/carscout/internal/query"
)

// Store is a TTL-bounded result cache. Entries are transient by contract;
// nothing here survives a restart unless a shared Redis sits behind it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key derives a stable cache key from a canonical query plus the retailer
// set and result cap. Identical searches hash identically regardless of
// retailer argument order.
func Key(q *query.CanonicalQuery, retailers []string, maxResults int) string {
	names := make([]string, len(retailers))
	copy(names, retailers)
	sort.Strings(names)

	payload, err := json.Marshal(q)
	if err != nil {
		payload = []byte(q.Raw)
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d",
		payload, strings.Join(names, ","), maxResults)))
	return "search:" + hex.EncodeToString(sum[:16])
}

// MemoryStore is an in-process expirable LRU.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	return value, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

// RedisStore shares cached results across processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}
