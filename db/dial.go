package db

import (
	"context"
	"fmt"
	"strings"
)

// Dial opens the backend described by target:
//
//	memory://                  in-process MemoryStore
//	pebble:///abs/dir          PebbleDB at /abs/dir (pebble://rel/dir is relative)
//	sqlite:///abs/file.db      SQLiteStore (sqlite://:memory: for a private in-memory db)
//	redis://[user:pass@]host:port/db, rediss://...   RedisStore
//
// ctx bounds only the connection handshake of network backends.
func Dial(ctx context.Context, target string, opts ...Option) (Store, error) {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q (missing scheme)", ErrUnsupportedTarget, target)
	}

	switch strings.ToLower(scheme) {
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "pebble":
		if rest == "" {
			return nil, fmt.Errorf("%w: pebble target needs a directory", ErrInvalidConfig)
		}
		s, err := OpenPebble(rest, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "sqlite3":
		s, err := OpenSQLite(rest, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis", "rediss", "unix":
		s, err := OpenRedis(ctx, target, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: memory, pebble, sqlite, redis)", ErrUnsupportedTarget, target)
	}
}

