// Package iterator provides paged iterator for an etcd prefix.
//
// All pages are loaded from the same revision as the first page,
// so the iterator returns a consistent snapshot of the prefix.
package iterator

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdop/op"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

const (
	end = ""
)

type Definition struct {
	config
	client etcd.KV
}

type Iterator struct {
	config
	ctx          context.Context
	client       etcd.KV
	err          error
	start        string         // page start prefix
	page         int            // page number, start from 1
	lastIndex    int            // lastIndex in the page, 0 means empty
	currentIndex int            // currentIndex in the page, start from 0
	values       []*op.KeyValue // values in the page
	currentValue *op.KeyValue   // currentValue in the page, match currentIndex
}

func New(client etcd.KV, prefix string, opts ...Option) Definition {
	return Definition{config: newConfig(prefix, opts), client: client}
}

// Do converts iterator definition to the iterator.
func (v Definition) Do(ctx context.Context) *Iterator {
	return &Iterator{ctx: ctx, client: v.client, config: v.config, start: v.prefix}
}

// Next returns true if there is a next value.
// False is returned if there is no next value or an error occurred.
func (v *Iterator) Next() bool {
	select {
	case <-v.ctx.Done():
		// Stop iteration if the context is done
		v.err = v.ctx.Err()
		return false
	default:
		// Is there one more item?
		if !v.nextItem() && !v.nextPage() {
			return false
		}

		v.currentValue = v.values[v.currentIndex]
		return true
	}
}

// Value returns the current value.
// It must be called after Next method.
func (v *Iterator) Value() *op.KeyValue {
	if v.page == 0 {
		panic(errors.New("unexpected Value() call: Next() must be called first"))
	}
	if v.err != nil {
		panic(errors.Errorf("unexpected Value() call: %w", v.err))
	}
	return v.currentValue
}

// Err returns error. It must be checked after iterations (Next() == false).
func (v *Iterator) Err() error {
	return v.err
}

// ForEach iterates the KVs using a callback.
func (v *Iterator) ForEach(fn func(value *op.KeyValue) error) (err error) {
	for v.Next() {
		if err = fn(v.Value()); err != nil {
			return err
		}
	}
	return v.Err()
}

func (v *Iterator) nextItem() bool {
	if v.lastIndex > v.currentIndex {
		v.currentIndex++
		return true
	}
	return false
}

func (v *Iterator) nextPage() bool {
	// Is there one more page?
	if v.start == end {
		return false
	}

	// Range options
	ops := []etcd.OpOption{
		etcd.WithRange(etcd.GetPrefixRangeEnd(v.prefix)), // iterate to the end of the prefix
		etcd.WithLimit(int64(v.pageSize)),
		etcd.WithSort(etcd.SortByKey, etcd.SortAscend),
	}

	// Ensure atomicity
	if v.revision > 0 {
		ops = append(ops, etcd.WithRev(v.revision))
	}

	// Get page
	v.page++
	r, err := v.client.Get(v.ctx, v.start, ops...)
	if err != nil {
		v.err = errors.Errorf(`etcd iterator failed: cannot get page "%s", page=%d: %w`, v.start, v.page, err)
		return false
	}

	// Handle empty result
	v.values = r.Kvs
	v.lastIndex = len(v.values) - 1
	if v.lastIndex == -1 {
		return false
	}

	// Prepare next page
	if r.More {
		// Start of the next page is one key after the last key
		v.start = string(v.values[v.lastIndex].Key) + "\x00"
	} else {
		v.start = end
	}

	v.currentIndex = 0
	v.revision = r.Header.Revision
	return true
}
