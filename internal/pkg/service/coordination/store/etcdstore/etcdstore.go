// Package etcdstore implements the store.Store on top of etcd.
//
// Version of an entry is the etcd ModRevision, CreateVersion is the etcd CreateRevision.
// The etcd client should be namespaced, see etcdclient.UseNamespace.
package etcdstore

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdop"
	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdop/iterator"
	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdop/op"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
)

type Store struct {
	kv        etcd.KV
	watcher   etcd.Watcher
	maxTxnOps int
	pageSize  int
}

type Option func(s *Store)

// WithMaxTxnOps must be lower or equal to the "--max-txn-ops" setting of the etcd server.
func WithMaxTxnOps(v int) Option {
	return func(s *Store) {
		s.maxTxnOps = v
	}
}

// WithPageSize sets page size of the prefix scan.
func WithPageSize(v int) Option {
	return func(s *Store) {
		s.pageSize = v
	}
}

func New(client *etcd.Client, opts ...Option) *Store {
	s := &Store{
		kv:        client.KV,
		watcher:   client.Watcher,
		maxTxnOps: store.DefaultMaxTxnOps,
		pageSize:  iterator.DefaultLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) MaxTxnOps() int {
	return s.maxTxnOps
}

func (s *Store) Get(ctx context.Context, key string) (*store.Entry, error) {
	kv, err := etcdop.NewKey(key).Get(s.kv).Do(ctx)
	if err != nil {
		return nil, store.NewUnavailableError("get", key, err)
	}
	if kv == nil {
		return nil, nil
	}
	entry := toEntry(kv)
	return &entry, nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := etcdop.NewKey(key).PutIfNotExists(s.kv, string(value)).Do(ctx)
	if err != nil {
		return false, store.NewUnavailableError("put if absent", key, err)
	}
	return ok, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, expectedVersion int64, value []byte) (bool, error) {
	k := etcdop.NewKey(key)

	var ok bool
	var err error
	if expectedVersion == 0 {
		ok, err = k.PutIfNotExists(s.kv, string(value)).Do(ctx)
	} else {
		ok, err = k.PutIfModRevision(s.kv, string(value), expectedVersion).Do(ctx)
	}

	if err != nil {
		return false, store.NewUnavailableError("compare and swap", key, err)
	}
	return ok, nil
}

func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	ok, err := etcdop.NewKey(key).Delete(s.kv).Do(ctx)
	if err != nil {
		return false, store.NewUnavailableError("remove", key, err)
	}
	return ok, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]store.Entry, error) {
	var out []store.Entry
	err := iterator.New(s.kv, prefix, iterator.WithPageSize(s.pageSize)).Do(ctx).ForEach(func(kv *op.KeyValue) error {
		out = append(out, toEntry(kv))
		return nil
	})
	if err != nil {
		return nil, store.NewUnavailableError("scan prefix", prefix, err)
	}
	return out, nil
}

func (s *Store) Transact(ctx context.Context, txn store.Txn) (bool, error) {
	if size := txn.Size(); size > s.maxTxnOps {
		return false, store.TxnTooLargeError{Size: size, Limit: s.maxTxnOps}
	}

	etcdTxn := op.Txn(s.kv)
	for _, c := range txn.Conditions {
		k := etcdop.NewKey(c.Key)
		if c.Version == 0 {
			etcdTxn.If(k.NotExists())
		} else {
			etcdTxn.If(k.ModRevisionIs(c.Version))
		}
	}
	for _, o := range txn.Ops {
		k := etcdop.NewKey(o.Key)
		switch o.Type {
		case store.OpPut:
			etcdTxn.Then(k.Put(s.kv, string(o.Value)))
		case store.OpDelete:
			etcdTxn.Then(k.Delete(s.kv))
		}
	}

	result, err := etcdTxn.Do(ctx)
	if err != nil {
		key := ""
		if len(txn.Ops) > 0 {
			key = txn.Ops[0].Key
		}
		return false, store.NewUnavailableError("transaction", key, err)
	}
	return result.Succeeded, nil
}

// WaitForChange implements store.Watcher.
func (s *Store) WaitForChange(ctx context.Context, key string, afterVersion int64) error {
	if err := etcdop.NewKey(key).WaitForChange(ctx, s.watcher, afterVersion); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return store.NewUnavailableError("watch", key, err)
	}
	return nil
}

func toEntry(kv *op.KeyValue) store.Entry {
	return store.Entry{
		Key:           string(kv.Key),
		Value:         kv.Value,
		Version:       kv.ModRevision,
		CreateVersion: kv.CreateRevision,
	}
}
