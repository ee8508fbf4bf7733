// Package memstore implements the store.Store in memory.
//
// All operations are serialized by one mutex, so they are linearizable.
// The store is used by tests and by the CLI for local experiments.
// Failures of the substrate can be simulated by an Interceptor.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/btree"
	"go.uber.org/atomic"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

const btreeDegree = 16

const (
	MethodGet            = "get"
	MethodPutIfAbsent    = "put if absent"
	MethodCompareAndSwap = "compare and swap"
	MethodRemove         = "remove"
	MethodScanPrefix     = "scan prefix"
	MethodTransact       = "transaction"
)

// Call describes a store operation passed to the Interceptor.
type Call struct {
	Method string
	// Key is the key or the prefix of the operation, for a transaction it is the first key.
	Key string
	// Txn is set only for the "transaction" method.
	Txn *store.Txn
}

// Interceptor is called before each operation, a returned error is reported as the store.UnavailableError.
type Interceptor func(call Call) error

type Store struct {
	lock        *sync.Mutex
	tree        *btree.BTreeG[*item]
	revision    int64
	maxTxnOps   int
	interceptor Interceptor
	stats       Stats
}

// Stats counts calls of the store methods.
type Stats struct {
	Gets         atomic.Int64
	Writes       atomic.Int64
	Scans        atomic.Int64
	Transactions atomic.Int64
}

type item struct {
	key           string
	value         []byte
	version       int64
	createVersion int64
}

type Option func(s *Store)

func WithMaxTxnOps(v int) Option {
	return func(s *Store) {
		s.maxTxnOps = v
	}
}

func WithInterceptor(fn Interceptor) Option {
	return func(s *Store) {
		s.interceptor = fn
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		lock:      &sync.Mutex{},
		tree:      btree.NewG(btreeDegree, func(a, b *item) bool { return a.key < b.key }),
		maxTxnOps: store.DefaultMaxTxnOps,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetInterceptor replaces the interceptor, nil removes it.
func (s *Store) SetInterceptor(fn Interceptor) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.interceptor = fn
}

func (s *Store) Stats() *Stats {
	return &s.stats
}

func (s *Store) MaxTxnOps() int {
	return s.maxTxnOps
}

// Keys returns all stored keys in ascending order.
func (s *Store) Keys() (out []string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tree.Ascend(func(v *item) bool {
		out = append(out, v.key)
		return true
	})
	return out
}

func (s *Store) Get(ctx context.Context, key string) (*store.Entry, error) {
	s.stats.Gets.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.intercept(ctx, Call{Method: MethodGet, Key: key}); err != nil {
		return nil, err
	}

	if v, found := s.tree.Get(&item{key: key}); found {
		entry := v.entry()
		return &entry, nil
	}
	return nil, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	s.stats.Writes.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.intercept(ctx, Call{Method: MethodPutIfAbsent, Key: key}); err != nil {
		return false, err
	}

	if s.tree.Has(&item{key: key}) {
		return false, nil
	}
	s.put(key, value)
	return true, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, expectedVersion int64, value []byte) (bool, error) {
	s.stats.Writes.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.intercept(ctx, Call{Method: MethodCompareAndSwap, Key: key}); err != nil {
		return false, err
	}

	if !s.check(store.VersionIs(key, expectedVersion)) {
		return false, nil
	}
	s.put(key, value)
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	s.stats.Writes.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.intercept(ctx, Call{Method: MethodRemove, Key: key}); err != nil {
		return false, err
	}

	if _, found := s.tree.Delete(&item{key: key}); found {
		s.revision++
		return true, nil
	}
	return false, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) (out []store.Entry, err error) {
	s.stats.Scans.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.intercept(ctx, Call{Method: MethodScanPrefix, Key: prefix}); err != nil {
		return nil, err
	}

	s.tree.AscendGreaterOrEqual(&item{key: prefix}, func(v *item) bool {
		if !strings.HasPrefix(v.key, prefix) {
			return false
		}
		out = append(out, v.entry())
		return true
	})
	return out, nil
}

func (s *Store) Transact(ctx context.Context, txn store.Txn) (bool, error) {
	s.stats.Transactions.Inc()
	s.lock.Lock()
	defer s.lock.Unlock()

	if size := txn.Size(); size > s.maxTxnOps {
		return false, store.TxnTooLargeError{Size: size, Limit: s.maxTxnOps}
	}

	key := ""
	if len(txn.Ops) > 0 {
		key = txn.Ops[0].Key
	}
	if err := s.intercept(ctx, Call{Method: MethodTransact, Key: key, Txn: &txn}); err != nil {
		return false, err
	}

	for _, c := range txn.Conditions {
		if !s.check(c) {
			return false, nil
		}
	}

	// All operations of the transaction share one revision, as in etcd
	s.revision++
	for _, o := range txn.Ops {
		switch o.Type {
		case store.OpPut:
			s.putWithRevision(o.Key, o.Value, s.revision)
		case store.OpDelete:
			s.tree.Delete(&item{key: o.Key})
		default:
			return false, errors.Errorf(`unexpected operation type "%d"`, o.Type)
		}
	}
	return true, nil
}

func (s *Store) intercept(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return store.NewUnavailableError(call.Method, call.Key, err)
	}
	if s.interceptor == nil {
		return nil
	}
	if err := s.interceptor(call); err != nil {
		var unavailable store.UnavailableError
		if errors.As(err, &unavailable) {
			return err
		}
		return store.NewUnavailableError(call.Method, call.Key, err)
	}
	return nil
}

func (s *Store) check(c store.Condition) bool {
	v, found := s.tree.Get(&item{key: c.Key})
	if c.Version == 0 {
		return !found
	}
	return found && v.version == c.Version
}

func (s *Store) put(key string, value []byte) {
	s.revision++
	s.putWithRevision(key, value, s.revision)
}

func (s *Store) putWithRevision(key string, value []byte, revision int64) {
	createVersion := revision
	if old, found := s.tree.Get(&item{key: key}); found {
		createVersion = old.createVersion
	}
	s.tree.ReplaceOrInsert(&item{
		key:           key,
		value:         append([]byte(nil), value...),
		version:       revision,
		createVersion: createVersion,
	})
}

func (v *item) entry() store.Entry {
	return store.Entry{
		Key:           v.key,
		Value:         append([]byte(nil), v.value...),
		Version:       v.version,
		CreateVersion: v.createVersion,
	}
}
