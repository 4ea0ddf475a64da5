package docstore

import (
	"context"
	"errors"
)

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("docstore: stop walk")

// GetByID returns the document stored under id. found is false when no
// such document exists.
func (c *Collection) GetByID(ctx context.Context, id string) (doc Document, found bool, err error) {
	if err := c.acquire(); err != nil {
		return nil, false, err
	}
	defer c.mu.RUnlock()

	return c.fetch(ctx, c.key(id))
}

// Filter returns every document matching filter, in store scan order.
// A filter with an "id" is answered by GetByID alone; any other filter
// scans the whole collection.
func (c *Collection) Filter(ctx context.Context, filter Filter) ([]Document, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	return c.filter(ctx, filter, 0)
}

// Get returns the first document matching filter.
func (c *Collection) Get(ctx context.Context, filter Filter) (doc Document, found bool, err error) {
	if err := c.acquire(); err != nil {
		return nil, false, err
	}
	defer c.mu.RUnlock()

	docs, err := c.filter(ctx, filter, 1)
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return docs[0], true, nil
}

// Count returns the number of documents matching filter.
func (c *Collection) Count(ctx context.Context, filter Filter) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	docs, err := c.filter(ctx, filter, 0)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// match is a document together with the key it was read from.
type match struct {
	key string
	doc Document
}

// filter returns up to limit matching documents (all of them when
// limit <= 0).
func (c *Collection) filter(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	matches, err := c.scan(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, m.doc)
	}
	return docs, nil
}

// scan is filter keeping the store key of every match. Keys that
// disappear between the scan and the fetch are skipped.
func (c *Collection) scan(ctx context.Context, filter Filter, limit int) ([]match, error) {
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	id, byID, err := f.lookupID()
	if err != nil {
		return nil, err
	}
	if byID {
		key := c.key(id)
		doc, found, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return []match{}, nil
		}
		return []match{{key: key, doc: doc}}, nil
	}

	matches := []match{}
	err = c.walk(ctx, func(key string) error {
		doc, found, err := c.fetch(ctx, key)
		if err != nil {
			return err
		}
		if !found || !f.matches(doc) {
			return nil
		}
		matches = append(matches, match{key: key, doc: doc})
		if limit > 0 && len(matches) >= limit {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}
	return matches, nil
}
