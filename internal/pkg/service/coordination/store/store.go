// Package store defines the contract of the key-value substrate under the coordination primitives.
//
// The substrate must provide atomic single-key operations and bounded multi-key transactions.
// Read committed isolation with atomic per-key compare-and-swap is sufficient.
//
// Conflicts are never reported as errors, they are reported as a false result.
// A failure of the substrate itself is reported as the UnavailableError.
package store

import (
	"context"
)

// DefaultMaxTxnOps matches the default "--max-txn-ops" limit of the etcd server.
const DefaultMaxTxnOps = 128

// Entry is one stored key.
type Entry struct {
	Key   string
	Value []byte
	// Version is increased on each modification of the key, it is the compare-and-swap token.
	Version int64
	// CreateVersion identifies the creation of the key, it changes when the key is deleted and created again.
	CreateVersion int64
}

type Store interface {
	// Get returns nil entry if the key does not exist.
	Get(ctx context.Context, key string) (*Entry, error)
	// PutIfAbsent atomically creates the key, false is returned if the key already exists.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// CompareAndSwap writes the value only if the key has not been modified since the expectedVersion.
	CompareAndSwap(ctx context.Context, key string, expectedVersion int64, value []byte) (bool, error)
	// Remove deletes the key, false is returned if the key did not exist.
	Remove(ctx context.Context, key string) (bool, error)
	// ScanPrefix returns all entries with the prefix, sorted by key in ascending order.
	ScanPrefix(ctx context.Context, prefix string) ([]Entry, error)
	// Transact applies all operations if all conditions are met, all-or-nothing.
	// False is returned if a condition failed, TxnTooLargeError if the transaction exceeds the MaxTxnOps limit.
	Transact(ctx context.Context, txn Txn) (bool, error)
	// MaxTxnOps returns maximum number of operations in one transaction.
	MaxTxnOps() int
}

// Watcher is an optional interface of a Store.
// If it is implemented, waiting for a change does not require polling.
type Watcher interface {
	// WaitForChange blocks until the key is modified or deleted after the afterVersion, or the context is done.
	WaitForChange(ctx context.Context, key string, afterVersion int64) error
}
