package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLock serializes sweep runs so overlapping runs never process the same batch
type SweepLock interface {
	// TryAcquire returns ok=false without blocking when the lock is held elsewhere.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLock serializes sweeps within one process
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

func (l *LocalLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock serializes sweeps across processes sharing one Redis.
// The TTL bounds how long a crashed holder blocks other runs.
type RedisLock struct {
	client *redis.Client
	prefix string
}

// NewRedisLock creates a Redis-backed sweep lock.
func NewRedisLock(addr, password, prefix string) (*RedisLock, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("sweep lock redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "returnremind:lock"
	}
	return &RedisLock{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
	}, nil
}

func (l *RedisLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := fmt.Sprintf("%s:%s", l.prefix, name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// Only delete our own token; the key may have expired and been retaken.
			_ = releaseScript.Run(rctx, l.client, []string{key}, token).Err()
		})
	}, true, nil
}

// Close releases the Redis connection pool.
func (l *RedisLock) Close() error {
	return l.client.Close()
}
