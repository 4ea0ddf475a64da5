package db

import (
	"runtime"

	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Config holds tunable parameters shared by the store backends. Use
// functional [Option] values with [Dial] or a backend constructor rather
// than constructing a Config directly.
type Config struct {
	// Namespace isolates this store's keys from other namespaces sharing
	// the same physical database. Pebble and SQLite honour it; Redis uses
	// the logical database number from the URL instead.
	Namespace string

	// --- Pebble tuning ---

	// CacheSize is the shared block-cache capacity in bytes.
	CacheSize int64

	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64

	// MaxConcurrentCompactions controls parallelism for background
	// compactions.
	MaxConcurrentCompactions int

	// MaxOpenFiles limits the number of open file descriptors Pebble
	// keeps open. Use 0 for unlimited.
	MaxOpenFiles int

	// SyncWrites controls whether each write is synced to stable storage.
	// false (default) gives better throughput; true gives durability per
	// write at a significant performance cost.
	SyncWrites bool

	// --- Redis ---

	// ScanCount is the COUNT hint passed to each SCAN round trip.
	ScanCount int64

	// Logger receives structured operational log messages.
	// If not set, the global logger.Default() is used.
	Logger logger.Logger
}

// DefaultConfig returns a Config with defaults sized for small document
// collections: modest caches and point lookups dominating.
func DefaultConfig() *Config {
	return &Config{
		Namespace:                DefaultNamespace,
		CacheSize:                64 << 20, // 64 MB
		MemTableSize:             16 << 20, // 16 MB
		MaxConcurrentCompactions: runtime.NumCPU(),
		MaxOpenFiles:             0, // unlimited
		ScanCount:                100,
	}
}

// Option is a functional option applied to [Config].
type Option func(*Config)

// WithNamespace sets the key namespace. Empty names fall back to
// [DefaultNamespace].
func WithNamespace(ns string) Option {
	return func(c *Config) { c.Namespace = ns }
}

// WithCacheSize sets the Pebble block-cache capacity in bytes.
func WithCacheSize(size int64) Option {
	return func(c *Config) { c.CacheSize = size }
}

// WithMemTableSize sets the Pebble memtable size in bytes.
func WithMemTableSize(size uint64) Option {
	return func(c *Config) { c.MemTableSize = size }
}

// WithMaxConcurrentCompactions sets Pebble background compaction parallelism.
func WithMaxConcurrentCompactions(n int) Option {
	return func(c *Config) { c.MaxConcurrentCompactions = n }
}

// WithMaxOpenFiles limits the number of open file descriptors.
// Use 0 for unlimited.
func WithMaxOpenFiles(n int) Option {
	return func(c *Config) { c.MaxOpenFiles = n }
}

// WithSyncWrites enables per-write durability (fsync).
func WithSyncWrites(sync bool) Option {
	return func(c *Config) { c.SyncWrites = sync }
}

// WithScanCount sets the Redis SCAN COUNT hint.
func WithScanCount(n int64) Option {
	return func(c *Config) { c.ScanCount = n }
}

// WithLogger sets a custom logger for the store.
// If not set, the global logger.Default() is used.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func buildConfig(opts []Option) *Config {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 100
	}
	return cfg
}

func (c *Config) logger(backend string) logger.Logger {
	log := c.Logger
	if log == nil {
		log = logger.Default()
	}
	return log.With("component", "db", "backend", backend, "namespace", c.Namespace)
}
