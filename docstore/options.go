package docstore

import (
	"github.com/beyondbrewing/brewery-docstore/db"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Options holds the settings of a [Collection]. Use functional [Option]
// values rather than constructing it directly.
type Options struct {
	// IDGenerator produces ids for documents inserted without one.
	// Defaults to AlphanumericID(IDLength).
	IDGenerator IDGenerator

	// IDLength is the length used by the default generator.
	IDLength int

	// OwnStore makes Close also close the backing store.
	OwnStore bool

	// StoreOptions are passed to db.Dial by Connect and Open.
	StoreOptions []db.Option

	// Logger falls back to logger.Default() if nil.
	Logger logger.Logger
}

// Option is a functional option for configuring a Collection.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{IDLength: DefaultIDLength}
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Options) { o.IDGenerator = g }
}

// WithIDLength sets the length of generated alphanumeric ids.
func WithIDLength(n int) Option {
	return func(o *Options) { o.IDLength = n }
}

// WithOwnedStore makes Close release the backing store as well.
func WithOwnedStore() Option {
	return func(o *Options) { o.OwnStore = true }
}

// WithStoreOptions sets options for the store opened by Connect or Open.
func WithStoreOptions(opts ...db.Option) Option {
	return func(o *Options) { o.StoreOptions = append(o.StoreOptions, opts...) }
}

// WithLogger sets a custom logger for the collection.
// If not set, the global logger.Default() is used.
func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
