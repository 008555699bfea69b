package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// MemorySeenStore remembers the most recent signatures in process
type MemorySeenStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, struct{}]
}

func NewMemorySeenStore(size int) (*MemorySeenStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("dedup size must be > 0")
	}
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemorySeenStore{cache: c}, nil
}

func (m *MemorySeenStore) MarkSeen(_ context.Context, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, _ := m.cache.ContainsOrAdd(signature, struct{}{})
	return !ok, nil
}

func (m *MemorySeenStore) Close() error {
	m.cache.Purge()
	return nil
}

// RedisSeenStore shares dedup state between notifier replicas with SET NX
type RedisSeenStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisSeenStore(client redis.Cmdable, ttl time.Duration) (*RedisSeenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("dedup ttl must be > 0")
	}
	return &RedisSeenStore{client: client, ttl: ttl}, nil
}

func (r *RedisSeenStore) MarkSeen(ctx context.Context, signature string) (bool, error) {
	ok, err := r.client.SetNX(ctx, constants.RedisKeySeenPrefix+signature, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return ok, nil
}

// Close is a no-op; the caller owns the shared client.
func (r *RedisSeenStore) Close() error {
	return nil
}
