package docstore

import (
	"context"
	"strings"
)

// Delete removes the documents matching filter and returns how many were
// removed. A filter with an "id" removes at most that one document.
func (c *Collection) Delete(ctx context.Context, filter Filter) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	id, byID, err := f.lookupID()
	if err != nil {
		return 0, err
	}
	if byID {
		return c.remove(ctx, c.key(id))
	}

	matches, err := c.scan(ctx, f, 0)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, m := range matches {
		n, err := c.remove(ctx, m.key)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Drop deletes every document of the collection and returns how many keys
// were removed. Other collections are untouched.
func (c *Collection) Drop(ctx context.Context) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	deleted := 0
	err := c.walk(ctx, func(key string) error {
		n, err := c.remove(ctx, key)
		deleted += n
		return err
	})
	if err != nil {
		return deleted, err
	}
	c.logger.Info("collection dropped", "collection", c.name, "deleted", deleted)
	return deleted, nil
}

// DropDatabase flushes the store's whole namespace, every collection
// included.
func (c *Collection) DropDatabase(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.mu.RUnlock()

	if err := c.store.FlushAll(ctx); err != nil {
		return storeErr("flush", "", err)
	}
	c.logger.Info("database dropped")
	return nil
}

// Keys returns the ids of every document in the collection.
func (c *Collection) Keys(ctx context.Context) ([]string, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	ids := []string{}
	prefix := c.prefix()
	err := c.walk(ctx, func(key string) error {
		ids = append(ids, strings.TrimPrefix(key, prefix))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Collection) remove(ctx context.Context, key string) (int, error) {
	n, err := c.store.Delete(ctx, key)
	if err != nil {
		return 0, storeErr("delete", key, err)
	}
	if n > 0 {
		c.logger.Debug("document deleted", "key", key)
	}
	return n, nil
}
