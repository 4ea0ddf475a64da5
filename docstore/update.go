package docstore

import (
	"context"
	"fmt"
)

// UpdateOptions controls Update.
type UpdateOptions struct {
	// Multiple updates every match instead of only the first. It also
	// fixes the Result shape: Many when true, Single or Absent when false.
	Multiple bool

	// Upsert inserts filter merged with the update fields when nothing
	// matches.
	Upsert bool
}

// Update merges fields into the documents matching filter and writes them
// back. The merge is shallow: top-level fields of fields replace those of
// the document, everything else is kept. It returns how many documents
// were written (an upserted document counts as one) and the written
// documents.
//
// A filter with an "id" only ever touches that document. Fields may not
// change a document's id; trying to fails with ErrIDMismatch.
func (c *Collection) Update(ctx context.Context, filter Filter, fields Document, opts UpdateOptions) (int, Result, error) {
	if err := c.acquire(); err != nil {
		return 0, AbsentResult(), err
	}
	defer c.mu.RUnlock()

	docs, _, err := c.update(ctx, filter, fields, opts)
	return len(docs), shape(docs, opts.Multiple), err
}

// UpdateOrCreate updates the first document matching filter with data, or
// inserts filter merged with data when nothing matches. created reports
// which happened.
func (c *Collection) UpdateOrCreate(ctx context.Context, filter Filter, data Document) (doc Document, created bool, err error) {
	if err := c.acquire(); err != nil {
		return nil, false, err
	}
	defer c.mu.RUnlock()

	docs, created, err := c.update(ctx, filter, data, UpdateOptions{Upsert: true})
	if err != nil {
		return nil, false, err
	}
	return docs[0], created, nil
}

// GetOrCreate returns the first document matching filter untouched, or
// inserts filter merged with data when nothing matches. created reports
// which happened.
func (c *Collection) GetOrCreate(ctx context.Context, filter Filter, data Document) (doc Document, created bool, err error) {
	if err := c.acquire(); err != nil {
		return nil, false, err
	}
	defer c.mu.RUnlock()

	matches, err := c.filter(ctx, filter, 1)
	if err != nil {
		return nil, false, err
	}
	if len(matches) > 0 {
		return matches[0], false, nil
	}

	doc, err = c.upsertDocument(ctx, filter, data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// update applies fields to the matches of filter and returns the written
// documents, and whether the only one was created by an upsert.
func (c *Collection) update(ctx context.Context, filter Filter, fields Document, opts UpdateOptions) ([]Document, bool, error) {
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, false, err
	}
	if _, _, err := documentID(fields); err != nil {
		return nil, false, err
	}
	patch, err := normalizeDoc(fields)
	if err != nil {
		return nil, false, err
	}

	var matches []Document
	id, byID, err := f.lookupID()
	if err != nil {
		return nil, false, err
	}
	if byID {
		doc, found, err := c.fetch(ctx, c.key(id))
		if err != nil {
			return nil, false, err
		}
		if found {
			matches = []Document{doc}
		}
	} else {
		limit := 1
		if opts.Multiple {
			limit = 0
		}
		if matches, err = c.filter(ctx, f, limit); err != nil {
			return nil, false, err
		}
	}

	updated := make([]Document, 0, len(matches))
	for _, doc := range matches {
		if newID, ok := patch[IDField]; ok && newID != doc[IDField] {
			return updated, false, fmt.Errorf("%w: %v -> %v", ErrIDMismatch, doc[IDField], newID)
		}
		merged := merge(doc, patch)
		if err := c.write(ctx, merged); err != nil {
			return updated, false, err
		}
		updated = append(updated, merged)
		c.logger.Debug("document updated", "collection", c.name, "id", merged.ID())
	}

	if len(updated) > 0 || !opts.Upsert {
		return updated, false, nil
	}

	doc, err := c.upsertDocument(ctx, f, patch)
	if err != nil {
		return nil, false, err
	}
	return []Document{doc}, true, nil
}

// upsertDocument inserts filter overlaid with data and returns the stored
// document. data may not name an id other than the filter's.
func (c *Collection) upsertDocument(ctx context.Context, filter Filter, data Document) (Document, error) {
	if want, ok := filter[IDField].(string); ok {
		if got, set := data[IDField]; set && got != want {
			return nil, fmt.Errorf("%w: %v -> %v", ErrIDMismatch, want, got)
		}
	}
	doc, err := c.create(ctx, merge(filter, data))
	if err != nil {
		return nil, fmt.Errorf("docstore: upsert: %w", err)
	}
	c.logger.Debug("document upserted", "collection", c.name, "id", doc.ID())
	return doc, nil
}

func shape(docs []Document, multiple bool) Result {
	if multiple {
		return ManyResult(docs)
	}
	if len(docs) == 0 {
		return AbsentResult()
	}
	return SingleResult(docs[0])
}
