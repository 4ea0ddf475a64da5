package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a [Store] backed by a single SQLite table:
//
//	kv(namespace, key, value)  PRIMARY KEY (namespace, key)
//
// Scans materialise the matching keys before returning, so a scan never
// holds a read cursor open across the caller's subsequent writes.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	namespace string
	logger    logger.Logger

	closed atomic.Bool
	mu     sync.RWMutex
}

// OpenSQLite opens (creating if needed) the database file at path. The
// special path ":memory:" opens a private in-memory database.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	cfg := buildConfig(opts)
	log := cfg.logger("sqlite")

	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path must not be empty", ErrInvalidConfig)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: failed to open %s: %w", path, err)
		}
	}

	sdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("db: failed to open %s: %w", path, err)
	}
	// One connection: an in-memory database lives and dies with its
	// connection, and SQLite serialises writers anyway.
	sdb.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := sdb.Exec("PRAGMA journal_mode=WAL"); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("db: failed to open %s: %w", path, err)
		}
	}
	if _, err := sdb.Exec(`CREATE TABLE IF NOT EXISTS kv (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		PRIMARY KEY (namespace, key)
	)`); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("db: failed to create schema: %w", err)
	}

	s := &SQLiteStore{
		db:        sdb,
		path:      path,
		namespace: cfg.Namespace,
		logger:    log,
	}
	log.Info("database opened", "path", path)
	return s, nil
}

// ---------------------------------------------------------------------------
// Store implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	var val []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE namespace = ? AND key = ?",
		s.namespace, key,
	).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db: get failed: %w", err)
	}
	return val, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		s.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("db: set failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return 0, ErrClosed
	}
	if key == "" {
		return 0, ErrEmptyKey
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE namespace = ? AND key = ?",
		s.namespace, key,
	)
	if err != nil {
		return 0, fmt.Errorf("db: delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: delete failed: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Scan(ctx context.Context, prefix string) (KeyIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv
		 WHERE namespace = ? AND substr(key, 1, length(?)) = ?
		 ORDER BY key`,
		s.namespace, prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("db: scan failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("db: scan failed: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: scan failed: %w", err)
	}
	return newSliceIterator(keys), nil
}

func (s *SQLiteStore) FlushAll(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed.Load() {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE namespace = ?", s.namespace); err != nil {
		return fmt.Errorf("db: flush all failed: %w", err)
	}
	s.logger.Info("namespace flushed", "path", s.path)
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}
	s.closed.Store(true)

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db: close failed: %w", err)
	}
	s.logger.Info("database closed", "path", s.path)
	return nil
}
