// Package kvstore provides the key-value persistence used to store the note
// corpus. Values are opaque bytes, read back verbatim.
package kvstore

import "context"

// Store is a key-value store. PutMany writes all entries atomically.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	PutMany(ctx context.Context, entries map[string][]byte) error
	Close() error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*DB)(nil)
	_ Store = (*MemStore)(nil)
)
