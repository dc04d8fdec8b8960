package payloadcache

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned when a write would push a tab past its byte quota.
	ErrQuotaExceeded = errors.New("tab storage quota exceeded")
	// ErrNoTab is returned when no tab identity accompanies the operation.
	ErrNoTab = errors.New("tab id required")
)

// Store is a key/value string store partitioned by tab. Implementations must
// make Put, Get and Clear individually atomic.
type Store interface {
	Put(ctx context.Context, tab, key string, value []byte) error
	Get(ctx context.Context, tab, key string) ([]byte, bool, error)
	Clear(ctx context.Context, tab string) error
	Close() error
}
