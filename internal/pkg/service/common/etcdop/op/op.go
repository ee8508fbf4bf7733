// Package op wraps low-level etcd operations to more easily usable high-level operation.
package op

import (
	"context"

	"go.etcd.io/etcd/api/v3/mvccpb"
	etcd "go.etcd.io/etcd/client/v3"
)

type KeyValue = mvccpb.KeyValue

// LowLevelOp can be converted to the raw etcd.Op, so it can be a part of a transaction.
type LowLevelOp interface {
	Op(ctx context.Context) (etcd.Op, error)
}

// Factory creates an etcd operation.
type Factory func(ctx context.Context) (etcd.Op, error)

// Mapper converts raw etcd response to the result of the high-level operation.
type Mapper[R any] func(ctx context.Context, r etcd.OpResponse) (R, error)

// ForType is a high-level operation with a result of the type R.
type ForType[R any] struct {
	client  etcd.KV
	factory Factory
	mapper  Mapper[R]
}

type (
	// BoolOp result is true/false value, true means success of the operation.
	BoolOp = ForType[bool]
	// GetOneOp result is one KV pair or nil.
	GetOneOp = ForType[*KeyValue]
	// NoResultOp result is only an error or nil.
	NoResultOp = ForType[NoResult]
)

type NoResult struct{}

func NewForType[R any](client etcd.KV, factory Factory, mapper Mapper[R]) ForType[R] {
	return ForType[R]{client: client, factory: factory, mapper: mapper}
}

// Op returns raw etcd.Op.
func (v ForType[R]) Op(ctx context.Context) (etcd.Op, error) {
	return v.factory(ctx)
}

func (v ForType[R]) Do(ctx context.Context) (R, error) {
	var empty R

	etcdOp, err := v.factory(ctx)
	if err != nil {
		return empty, err
	}

	r, err := v.client.Do(ctx, etcdOp)
	if err != nil {
		return empty, err
	}

	return v.mapper(ctx, r)
}
