package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// RedisStore is a [Store] backed by a Redis server. Values are stored as
// plain string keys holding the raw bytes; the logical database selected
// in the URL acts as the namespace, so FlushAll maps to FLUSHDB.
//
// Timeouts and cancellation come from the client options encoded in the
// URL (dial_timeout, read_timeout, ...) and from the caller's context.
type RedisStore struct {
	client    *redis.Client
	addr      string
	scanCount int64
	logger    logger.Logger

	closed atomic.Bool
	mu     sync.RWMutex
}

// OpenRedis connects to the server described by a redis:// or rediss://
// URL and verifies the connection with PING.
func OpenRedis(ctx context.Context, url string, opts ...Option) (*RedisStore, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return NewRedisStore(ctx, redis.NewClient(ropts), opts...)
}

// NewRedisStore wraps an existing client. The store takes ownership of the
// client and closes it on Close.
func NewRedisStore(ctx context.Context, client *redis.Client, opts ...Option) (*RedisStore, error) {
	cfg := buildConfig(opts)
	log := cfg.logger("redis")

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("db: redis ping %s failed: %w", client.Options().Addr, err)
	}

	r := &RedisStore{
		client:    client,
		addr:      client.Options().Addr,
		scanCount: cfg.ScanCount,
		logger:    log,
	}
	log.Info("database opened", "addr", r.addr, "db", client.Options().DB)
	return r, nil
}

// ---------------------------------------------------------------------------
// Store implementation
// ---------------------------------------------------------------------------

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("db: get failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}

	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("db: set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return 0, ErrClosed
	}
	if key == "" {
		return 0, ErrEmptyKey
	}

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("db: delete failed: %w", err)
	}
	return int(n), nil
}

// Scan walks the keyspace with SCAN MATCH prefix*. SCAN guarantees that
// keys present for the whole scan are returned at least once, so keys are
// de-duplicated here.
func (r *RedisStore) Scan(ctx context.Context, prefix string) (KeyIterator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}

	iter := r.client.Scan(ctx, 0, globEscape(prefix)+"*", r.scanCount).Iterator()
	return &redisIterator{ctx: ctx, iter: iter, seen: make(map[string]struct{})}, nil
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return ErrClosed
	}

	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("db: flush all failed: %w", err)
	}
	r.logger.Info("namespace flushed", "addr", r.addr)
	return nil
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrClosed
	}
	r.closed.Store(true)

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("db: close failed: %w", err)
	}
	r.logger.Info("database closed", "addr", r.addr)
	return nil
}

// ---------------------------------------------------------------------------
// Iterator implementation
// ---------------------------------------------------------------------------

type redisIterator struct {
	ctx  context.Context
	iter *redis.ScanIterator
	seen map[string]struct{}
	cur  string
}

func (it *redisIterator) Next() bool {
	for it.iter.Next(it.ctx) {
		k := it.iter.Val()
		if _, dup := it.seen[k]; dup {
			continue
		}
		it.seen[k] = struct{}{}
		it.cur = k
		return true
	}
	it.cur = ""
	return false
}

func (it *redisIterator) Key() string { return it.cur }

func (it *redisIterator) Err() error {
	if err := it.iter.Err(); err != nil {
		return fmt.Errorf("db: scan failed: %w", err)
	}
	return nil
}

func (it *redisIterator) Close() error { return nil }

// globEscape quotes the characters SCAN MATCH treats as pattern syntax.
func globEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
