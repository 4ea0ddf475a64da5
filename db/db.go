// Package db provides the flat key-value storage layer the document adapter
// is built on. A [Store] maps string keys to opaque byte values (JSON
// documents in practice) and offers only single-key operations plus
// prefix enumeration.
//
// Backends: [MemoryStore] (in-process, also the test double), [PebbleDB]
// (embedded), [RedisStore] and [SQLiteStore]. Use [Dial] to open one from a
// connection target such as "pebble:///var/lib/docstore" or
// "redis://localhost:6379/0".
//
// Only single-key writes are atomic. A Scan is weakly consistent: it
// enumerates every key present when it started but may or may not observe
// keys written or removed while it runs.
package db

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors returned by Store implementations.
var (
	ErrClosed            = errors.New("db: database is closed")
	ErrKeyNotFound       = errors.New("db: key not found")
	ErrEmptyKey          = errors.New("db: key must not be empty")
	ErrUnsupportedTarget = errors.New("db: unsupported connection target")
	ErrInvalidConfig     = errors.New("db: invalid configuration")
)

// DefaultNamespace is the namespace used when none is configured.
const DefaultNamespace = "default"

// Store defines the contract for all storage backends.
// All methods are safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set atomically creates or replaces the value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key and reports how many keys were removed (0 or 1).
	// Deleting a non-existent key is not an error.
	Delete(ctx context.Context, key string) (int, error)

	// Scan enumerates the keys starting with prefix. An empty prefix
	// enumerates the whole namespace. Order is backend specific.
	// The caller must Close the returned iterator.
	Scan(ctx context.Context, prefix string) (KeyIterator, error)

	// FlushAll deletes every key in the store's namespace.
	FlushAll(ctx context.Context) error

	// Close releases the store. After Close returns, every other method
	// returns ErrClosed.
	io.Closer
}

// KeyIterator is a lazy sequence of keys produced by [Store.Scan].
//
//	it, err := store.Scan(ctx, "users:")
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		key := it.Key()
//	}
//	if err := it.Err(); err != nil { ... }
type KeyIterator interface {
	// Next advances to the next key and reports whether one is available.
	Next() bool

	// Key returns the current key. Only valid after Next returned true.
	Key() string

	// Err returns the first error met while iterating.
	Err() error

	// Close releases iterator resources.
	Close() error
}

// CollectKeys drains it and returns every key it yields. The iterator is
// closed before returning.
func CollectKeys(it KeyIterator) ([]string, error) {
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	if err := it.Err(); err != nil {
		return keys, err
	}
	return keys, nil
}

// sliceIterator walks a precomputed key snapshot.
type sliceIterator struct {
	keys []string
	pos  int
	err  error
}

func newSliceIterator(keys []string) *sliceIterator {
	return &sliceIterator{keys: keys, pos: -1}
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Key() string {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return ""
	}
	return it.keys[it.pos]
}

func (it *sliceIterator) Err() error   { return it.err }
func (it *sliceIterator) Close() error { return nil }
