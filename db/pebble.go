package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
	"github.com/cockroachdb/pebble"
)

// Compile-time interface check.
var _ Store = (*PebbleDB)(nil)

// PebbleDB is an embedded [Store] backed by Pebble. It is safe for
// concurrent use; Pebble handles its own internal synchronisation.
//
// Namespaces are simulated via key-prefixing: every user key is stored as
// namespace + '\x00' + key, keeping namespaces sorted in disjoint ranges so
// FlushAll can drop one with a single range deletion.
type PebbleDB struct {
	db *pebble.DB

	// prefix is namespace + '\x00'; upper is namespace + '\x01'.
	prefix []byte
	upper  []byte

	writeOpts *pebble.WriteOptions
	path      string
	logger    logger.Logger

	// closed + mu guard against use-after-close. Individual operations
	// take an RLock (allowing full concurrency). Close takes the write
	// lock, draining in-flight operations before teardown.
	closed atomic.Bool
	mu     sync.RWMutex

	// delMu serialises the read-then-delete in Delete so the reported
	// count matches what this process removed.
	delMu sync.Mutex
}

// OpenPebble creates or opens a Pebble database at path.
// The caller must call Close when done to release all resources.
func OpenPebble(path string, opts ...Option) (*PebbleDB, error) {
	cfg := buildConfig(opts)
	log := cfg.logger("pebble")

	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()

	pOpts := &pebble.Options{
		Cache:                    cache,
		MemTableSize:             cfg.MemTableSize,
		MaxOpenFiles:             cfg.MaxOpenFiles,
		MaxConcurrentCompactions: func() int { return cfg.MaxConcurrentCompactions },
	}

	pdb, err := pebble.Open(path, pOpts)
	if err != nil {
		return nil, fmt.Errorf("db: failed to open %s: %w", path, err)
	}

	writeOpts := pebble.NoSync
	if cfg.SyncWrites {
		writeOpts = pebble.Sync
	}

	p := &PebbleDB{
		db:        pdb,
		prefix:    nsPrefix(cfg.Namespace),
		upper:     prefixUpperBound(nsPrefix(cfg.Namespace)),
		writeOpts: writeOpts,
		path:      path,
		logger:    log,
	}

	log.Info("database opened", "path", path)
	return p, nil
}

// ---------------------------------------------------------------------------
// Store implementation
// ---------------------------------------------------------------------------

func (p *PebbleDB) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	val, closer, err := p.db.Get(prefixedKey(p.prefix, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("db: get failed: %w", err)
	}
	defer closer.Close()

	// Copy: the returned slice is only valid until closer.Close().
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *PebbleDB) Set(_ context.Context, key string, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}

	if err := p.db.Set(prefixedKey(p.prefix, key), value, p.writeOpts); err != nil {
		return fmt.Errorf("db: set failed: %w", err)
	}
	return nil
}

func (p *PebbleDB) Delete(_ context.Context, key string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return 0, ErrClosed
	}
	if key == "" {
		return 0, ErrEmptyKey
	}

	p.delMu.Lock()
	defer p.delMu.Unlock()

	pk := prefixedKey(p.prefix, key)
	_, closer, err := p.db.Get(pk)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("db: delete failed: %w", err)
	}
	closer.Close()

	if err := p.db.Delete(pk, p.writeOpts); err != nil {
		return 0, fmt.Errorf("db: delete failed: %w", err)
	}
	return 1, nil
}

func (p *PebbleDB) Scan(_ context.Context, prefix string) (KeyIterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return nil, ErrClosed
	}

	lower := prefixedKey(p.prefix, prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixUpperBound(lower),
	})
	if err != nil {
		return nil, fmt.Errorf("db: new iterator failed: %w", err)
	}

	return &pebbleIterator{
		iter:      iter,
		prefixLen: len(p.prefix),
	}, nil
}

// FlushAll range-deletes the namespace.
func (p *PebbleDB) FlushAll(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}

	if err := p.db.DeleteRange(p.prefix, p.upper, p.writeOpts); err != nil {
		return fmt.Errorf("db: flush all failed: %w", err)
	}
	p.logger.Info("namespace flushed", "path", p.path)
	return nil
}

// Flush forces buffered writes (memtable) to persistent storage.
func (p *PebbleDB) Flush() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}

	if err := p.db.Flush(); err != nil {
		return fmt.Errorf("db: flush failed: %w", err)
	}
	return nil
}

// Close performs a graceful shutdown. It acquires an exclusive lock so
// all in-flight operations complete before teardown.
func (p *PebbleDB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrClosed
	}
	p.closed.Store(true)

	p.logger.Info("closing database", "path", p.path)

	if err := p.db.Flush(); err != nil {
		p.logger.Error("flush failed during shutdown", "error", err)
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("db: close failed: %w", err)
	}

	p.logger.Info("database closed", "path", p.path)
	return nil
}

// ---------------------------------------------------------------------------
// Iterator implementation
// ---------------------------------------------------------------------------

type pebbleIterator struct {
	iter      *pebble.Iterator
	prefixLen int
	started   bool
	closed    bool
}

func (it *pebbleIterator) Next() bool {
	if it.closed {
		return false
	}
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *pebbleIterator) Key() string {
	if it.closed || !it.iter.Valid() {
		return ""
	}
	raw := it.iter.Key()
	if len(raw) < it.prefixLen {
		return ""
	}
	// string() copies, so the key outlives the iterator position.
	return string(raw[it.prefixLen:])
}

func (it *pebbleIterator) Err() error {
	if it.closed {
		return nil
	}
	return it.iter.Error()
}

func (it *pebbleIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.iter.Close()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// nsPrefix builds the key prefix for a namespace: "ns\x00".
func nsPrefix(ns string) []byte {
	b := make([]byte, len(ns)+1)
	copy(b, ns)
	b[len(ns)] = 0x00
	return b
}

// prefixUpperBound returns the smallest key greater than every key that
// starts with prefix, or nil when no such key exists (all 0xff).
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// prefixedKey concatenates a namespace prefix and a user key into a single
// storage key: prefix + key.
func prefixedKey(prefix []byte, key string) []byte {
	pk := make([]byte, len(prefix)+len(key))
	copy(pk, prefix)
	copy(pk[len(prefix):], key)
	return pk
}
