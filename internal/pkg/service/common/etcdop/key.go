package etcdop

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdop/op"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// Key represents an etcd key - one key, not a prefix.
type Key string

func NewKey(v string) Key {
	return Key(v)
}

func (v Key) Key() string {
	return string(v)
}

func (v Key) Get(client etcd.KV, opts ...etcd.OpOption) op.GetOneOp {
	return op.NewForType(
		client,
		func(_ context.Context) (etcd.Op, error) {
			return etcd.OpGet(v.Key(), opts...), nil
		},
		func(_ context.Context, r etcd.OpResponse) (*op.KeyValue, error) {
			count := r.Get().Count
			switch count {
			case 0:
				return nil, nil
			case 1:
				return r.Get().Kvs[0], nil
			default:
				return nil, errors.Errorf(`etcd get: at most one result result expected, found %d results`, count)
			}
		},
	)
}

func (v Key) Put(client etcd.KV, val string, opts ...etcd.OpOption) op.NoResultOp {
	return op.NewForType(
		client,
		func(_ context.Context) (etcd.Op, error) {
			return etcd.OpPut(v.Key(), val, opts...), nil
		},
		func(_ context.Context, _ etcd.OpResponse) (op.NoResult, error) {
			// response is always OK
			return op.NoResult{}, nil
		},
	)
}

func (v Key) PutIfNotExists(client etcd.KV, val string, opts ...etcd.OpOption) op.BoolOp {
	return op.NewForType(
		client,
		func(_ context.Context) (etcd.Op, error) {
			return etcd.OpTxn(
				[]etcd.Cmp{v.NotExists()},
				[]etcd.Op{etcd.OpPut(v.Key(), val, opts...)},
				nil,
			), nil
		},
		func(_ context.Context, r etcd.OpResponse) (bool, error) {
			return r.Txn().Succeeded, nil
		},
	)
}

// PutIfModRevision writes the value only if the key has not been modified since the modRevision.
func (v Key) PutIfModRevision(client etcd.KV, val string, modRevision int64, opts ...etcd.OpOption) op.BoolOp {
	return op.NewForType(
		client,
		func(_ context.Context) (etcd.Op, error) {
			return etcd.OpTxn(
				[]etcd.Cmp{v.ModRevisionIs(modRevision)},
				[]etcd.Op{etcd.OpPut(v.Key(), val, opts...)},
				nil,
			), nil
		},
		func(_ context.Context, r etcd.OpResponse) (bool, error) {
			return r.Txn().Succeeded, nil
		},
	)
}

func (v Key) Delete(client etcd.KV, opts ...etcd.OpOption) op.BoolOp {
	return op.NewForType(
		client,
		func(_ context.Context) (etcd.Op, error) {
			return etcd.OpDelete(v.Key(), opts...), nil
		},
		func(_ context.Context, r etcd.OpResponse) (bool, error) {
			count := r.Del().Deleted
			switch count {
			case 0:
				return false, nil
			case 1:
				return true, nil
			default:
				return false, errors.Errorf(`etcd delete: at most one result result expected, found %d results`, count)
			}
		},
	)
}

// NotExists is a transaction condition, the key must not exist.
func (v Key) NotExists() etcd.Cmp {
	return etcd.Compare(etcd.Version(v.Key()), "=", 0)
}

// ModRevisionIs is a transaction condition, the key must be last modified in the revision.
func (v Key) ModRevisionIs(modRevision int64) etcd.Cmp {
	return etcd.Compare(etcd.ModRevision(v.Key()), "=", modRevision)
}
