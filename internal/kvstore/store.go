// Package kvstore is the offline persistence layer: named JSON documents
// under fixed keys, bounded by a byte quota.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// DefaultQuotaBytes matches the usual browser localStorage allowance
const DefaultQuotaBytes int64 = 5 << 20

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
)

type Store interface {
	// Get returns ErrNotFound when key has never been set
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value under key. It fails with ErrQuotaExceeded when the
	// total size of all values would exceed the quota.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func quotaError(key string, size, quota int64) error {
	return fmt.Errorf("%w: writing %q would use %d of %d bytes", ErrQuotaExceeded, key, size, quota)
}
