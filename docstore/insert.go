package docstore

import (
	"context"
	"fmt"
)

// Insert stores doc under "{collection}:{id}", replacing whatever was
// there, and returns the id used. A document without an id gets a
// generated one; doc itself is not modified.
func (c *Collection) Insert(ctx context.Context, doc Document) (string, error) {
	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.mu.RUnlock()

	stored, err := c.insert(ctx, doc)
	if err != nil {
		return "", err
	}
	return stored.ID(), nil
}

// InsertMany inserts docs in order and returns their ids. It is not
// atomic: on error the returned ids are those already committed.
func (c *Collection) InsertMany(ctx context.Context, docs []Document) ([]string, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		stored, err := c.insert(ctx, doc)
		if err != nil {
			return ids, fmt.Errorf("docstore: insert %d of %d: %w", i+1, len(docs), err)
		}
		ids = append(ids, stored.ID())
	}
	return ids, nil
}

// InsertUnique inserts data only when nothing matches filter and, if data
// carries an id, no document exists under that id. It reports whether the
// insert happened.
func (c *Collection) InsertUnique(ctx context.Context, filter Filter, data Document) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.mu.RUnlock()

	matches, err := c.filter(ctx, filter, 1)
	if err != nil {
		return false, err
	}
	if len(matches) > 0 {
		return false, nil
	}

	id, hasID, err := documentID(data)
	if err != nil {
		return false, err
	}
	if hasID {
		_, exists, err := c.fetch(ctx, c.key(id))
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	if _, err := c.insert(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

// insert normalises doc, assigns an id when missing, writes it and
// returns the stored form.
func (c *Collection) insert(ctx context.Context, doc Document) (Document, error) {
	if _, _, err := documentID(doc); err != nil {
		return nil, err
	}
	d, err := normalizeDoc(doc)
	if err != nil {
		return nil, err
	}

	if _, ok := d[IDField]; !ok {
		id, err := c.newID()
		if err != nil {
			return nil, fmt.Errorf("%w: generate id: %v", ErrInvalidDocument, err)
		}
		if id == "" {
			return nil, fmt.Errorf("%w: generated id is empty", ErrInvalidDocument)
		}
		d[IDField] = id
	}

	if err := c.write(ctx, d); err != nil {
		return nil, err
	}
	c.logger.Debug("document inserted", "collection", c.name, "id", d.ID())
	return d, nil
}

// create inserts doc and reads it back from the store. If the document
// vanished in between, the written form is returned.
func (c *Collection) create(ctx context.Context, doc Document) (Document, error) {
	stored, err := c.insert(ctx, doc)
	if err != nil {
		return nil, err
	}
	fresh, ok, err := c.fetch(ctx, c.key(stored.ID()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return stored, nil
	}
	return fresh, nil
}
