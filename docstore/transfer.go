package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dolmen-go/contextio"
)

// Export writes every document of the collection to w as one JSON object
// per line and returns how many were written. Cancelling ctx aborts the
// write.
func (c *Collection) Export(ctx context.Context, w io.Writer) (int, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.mu.RUnlock()

	enc := json.NewEncoder(contextio.NewWriter(ctx, w))
	written := 0
	err := c.walk(ctx, func(key string) error {
		doc, found, err := c.fetch(ctx, key)
		if err != nil || !found {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("docstore: export: %w", err)
		}
		written++
		return nil
	})
	return written, err
}

// Import reads a stream of JSON objects (typically the output of Export)
// from r and inserts each one. Like InsertMany it is not atomic: on error
// the returned ids are those already committed.
func (c *Collection) Import(ctx context.Context, r io.Reader) ([]string, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	dec := json.NewDecoder(contextio.NewReader(ctx, r))
	dec.UseNumber()
	ids := []string{}
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return ids, fmt.Errorf("docstore: import document %d: %w", len(ids)+1, err)
		}
		if doc == nil {
			continue
		}
		stored, err := c.insert(ctx, doc)
		if err != nil {
			return ids, fmt.Errorf("docstore: import document %d: %w", len(ids)+1, err)
		}
		ids = append(ids, stored.ID())
	}
}
