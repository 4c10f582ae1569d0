package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Collection is a JSON array of T stored under a single key.
// Update runs read-modify-write under a mutex so concurrent requests do not
// lose each other's writes.
type Collection[T any] struct {
	store  Store
	key    string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewCollection[T any](store Store, key string, logger *slog.Logger) *Collection[T] {
	return &Collection[T]{store: store, key: key, logger: logger}
}

func (c *Collection[T]) Key() string {
	return c.key
}

// Load returns every record under the key. A missing key is an empty
// collection, and so is a value that is not valid JSON (logged).
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		if c.logger != nil {
			c.logger.WarnContext(ctx, "discarding unreadable collection", "key", c.key, "error", err)
		}
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

// Update loads the collection, hands it to fn and saves what fn returns.
// Nothing is written when fn returns an error.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Load(ctx)
	if err != nil {
		return err
	}

	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}
