package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/beyondbrewing/brewery-docstore/config"
	"github.com/beyondbrewing/brewery-docstore/db"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Collection is the document adapter for one named collection of a store.
// It holds no document state of its own; every call goes to the store.
//
// A Collection is Open until Close is called and Closed afterwards; every
// method of a closed Collection returns ErrClosed. It is safe for
// concurrent use, with the consistency limits described in the package
// documentation.
type Collection struct {
	store db.Store
	opts  *Options
	newID IDGenerator

	logger logger.Logger

	// mu guards name and closed. Operations hold the read lock for their
	// whole duration; Use and Close take the write lock.
	mu     sync.RWMutex
	name   string
	closed bool
}

// New returns a Collection named name over store.
func New(store db.Store, name string, opts ...Option) (*Collection, error) {
	if store == nil {
		return nil, errors.New("docstore: store must not be nil")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	newID := o.IDGenerator
	if newID == nil {
		if o.IDLength <= 0 {
			return nil, fmt.Errorf("docstore: id length must be positive, got %d", o.IDLength)
		}
		newID = AlphanumericID(o.IDLength)
	}

	log := o.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Collection{
		store:  store,
		opts:   o,
		newID:  newID,
		logger: log.With("component", "docstore"),
		name:   name,
	}, nil
}

// Connect dials target (see db.Dial) and returns a Collection that owns the
// resulting store.
func Connect(ctx context.Context, target, name string, opts ...Option) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	storeOpts := o.StoreOptions
	if o.Logger != nil {
		storeOpts = append([]db.Option{db.WithLogger(o.Logger)}, storeOpts...)
	}

	store, err := db.Dial(ctx, target, storeOpts...)
	if err != nil {
		return nil, storeErr("connect", "", err)
	}

	opts = append(opts[:len(opts):len(opts)], WithOwnedStore())
	c, err := New(store, name, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// Open is Connect driven by a loaded configuration.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Collection, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []Option{
		WithIDLength(cfg.IDLength),
		WithStoreOptions(db.WithNamespace(cfg.Namespace)),
	}
	return Connect(ctx, cfg.ConnectionTarget, cfg.CollectionName, append(base, opts...)...)
}

// Name returns the active collection name.
func (c *Collection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Use switches the adapter to another collection of the same store.
func (c *Collection) Use(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.logger.Debug("collection switched", "from", c.name, "to", name)
	c.name = name
	return nil
}

// Close moves the adapter to the Closed state and, if it owns the store,
// closes the store too. Closing twice returns ErrClosed.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.closed = true

	if c.opts.OwnStore {
		if err := c.store.Close(); err != nil {
			return storeErr("close", "", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key mapping and single-key primitives. Callers hold c.mu.RLock.
// ---------------------------------------------------------------------------

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidCollection)
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q contains ':'", ErrInvalidCollection, name)
	}
	return nil
}

func (c *Collection) prefix() string {
	return c.name + ":"
}

func (c *Collection) key(id string) string {
	return c.name + ":" + id
}

// fetch reads the document stored under key. A missing key, or a key
// holding JSON null, reports found == false.
func (c *Collection) fetch(ctx context.Context, key string) (Document, bool, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, storeErr("get", key, err)
	}

	var doc Document
	if err := decodeJSON(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, key, err)
	}
	if doc == nil {
		return nil, false, nil
	}
	return doc, true, nil
}

// write stores doc under its own id.
func (c *Collection) write(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	key := c.key(doc.ID())
	if err := c.store.Set(ctx, key, raw); err != nil {
		return storeErr("set", key, err)
	}
	return nil
}

// walk calls fn for every key of the collection, in store scan order.
// The scan is lazy: fn runs while the store iterator is open.
func (c *Collection) walk(ctx context.Context, fn func(key string) error) error {
	it, err := c.store.Scan(ctx, c.prefix())
	if err != nil {
		return storeErr("scan", c.prefix(), err)
	}
	defer it.Close()

	for it.Next() {
		if err := fn(it.Key()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return storeErr("scan", c.prefix(), err)
	}
	return nil
}

// acquire takes the read lock for one operation, failing on a closed
// adapter. On success the caller must release c.mu.RUnlock.
func (c *Collection) acquire() error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	return nil
}
