// Package persist implements spec.md §4.3's two persistence adapters
// (SignalStore for active signals, ScheduleStore for pending-activation
// signals) plus the RiskStore backing ClientRisk's optional persistence,
// all built over a common pluggable Backend contract.
//
// Backend.WriteData MUST be atomic: write to "{key}.tmp", flush to
// stable storage, then rename to "{key}" — a crash at any point must
// leave either the prior content or the new content, never a
// truncated file (spec.md §4.3, Testable Property 5).
package persist

import "context"

// Backend is the pluggable storage contract. Every store in this
// package is built only against this interface — concrete backends
// (file, sqlite, mongo) are interchangeable.
type Backend interface {
	// WriteData atomically stores data under key within namespace.
	WriteData(ctx context.Context, namespace, key string, data []byte) error
	// ReadData returns the bytes stored under key, or (nil, nil) if
	// the key is absent or cannot be read — reads never fail the
	// caller. The bytes are returned as stored; the stores built on
	// Backend decode them and treat corrupt JSON as missing with a
	// warn log.
	ReadData(ctx context.Context, namespace, key string) ([]byte, error)
	// DeleteData removes key from namespace. Deleting an absent key is
	// not an error.
	DeleteData(ctx context.Context, namespace, key string) error
	// EnsureNamespace prepares namespace for use (e.g. creates a
	// directory or a table) ahead of first write.
	EnsureNamespace(ctx context.Context, namespace string) error
	// ListKeys enumerates every key currently stored in namespace, for
	// crash recovery.
	ListKeys(ctx context.Context, namespace string) ([]string, error)
}
