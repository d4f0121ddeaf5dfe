// Package ledger holds the client-side state of the expense tracker: the
// local expense store, budgets, the pending sync queue, the reconciler that
// pushes local state to the server, and the cached session.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"spendsync/internal/log"
	"spendsync/internal/storage"
)

// schemaVersion is the current on-disk version of every collection blob.
// Version 0 is a bare JSON array written by older clients.
const schemaVersion = 1

type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// collection is a versioned list of T stored as a single blob. All
// read-modify-write cycles on the blob go through mu.
type collection[T any] struct {
	store  storage.BlobStore
	key    string
	logger *log.Logger

	// decodeLegacy parses a version 0 array. Defaults to plain JSON.
	decodeLegacy func(raw []byte) ([]T, error)
	// upgrade fixes up items read from an older version before they are
	// written back.
	upgrade func(items []T) []T

	mu sync.Mutex
}

func newCollection[T any](store storage.BlobStore, key string, logger *log.Logger) *collection[T] {
	return &collection[T]{store: store, key: key, logger: logger}
}

// read returns the items, degrading to an empty list on any failure.
func (c *collection[T]) read(ctx context.Context) []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read collection, using empty list",
			log.FieldKey, c.key, log.FieldError, err.Error())
		return []T{}
	}
	return items
}

// update applies fn to the current items and persists the result. A
// failed load aborts the update so a corrupt blob is never overwritten.
func (c *collection[T]) update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}

// clear removes the blob entirely.
func (c *collection[T]) clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("clear %s: %w", c.key, err)
	}
	return nil
}

// load must be called with mu held. Older versions are upgraded and
// written back once so later reads see the current schema.
func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}

	items, version, err := c.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if version >= schemaVersion {
		return items, nil
	}

	if c.upgrade != nil {
		items = c.upgrade(items)
	}
	if err := c.save(ctx, items); err != nil {
		// The upgraded items are still usable; the write is retried on the next load.
		c.logger.WarnContext(ctx, "Failed to persist migrated collection",
			log.FieldKey, c.key, log.FieldError, err.Error())
	} else {
		c.logger.InfoContext(ctx, "Migrated collection",
			log.FieldKey, c.key, log.FieldOperation, log.OpMigrate,
			"from_version", version, "to_version", schemaVersion, log.FieldCount, len(items))
	}
	return items, nil
}

func (c *collection[T]) decode(raw []byte) ([]T, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, schemaVersion, nil
	}

	if trimmed[0] == '[' {
		decode := c.decodeLegacy
		if decode == nil {
			decode = decodeJSONList[T]
		}
		items, err := decode(trimmed)
		if err != nil {
			return nil, 0, err
		}
		return items, 0, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, err
	}
	if env.Version > schemaVersion {
		return nil, 0, fmt.Errorf("unsupported schema version %d", env.Version)
	}
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, env.Version, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(envelope[T]{Version: schemaVersion, Items: items})
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}

func decodeJSONList[T any](raw []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
