package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/storetest"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func TestStore(t *testing.T) {
	t.Parallel()
	storetest.Run(t, memstore.New())
}

func TestStore_Interceptor(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	var calls []memstore.Call
	s := memstore.New(memstore.WithInterceptor(func(call memstore.Call) error {
		calls = append(calls, call)
		if call.Method == memstore.MethodTransact {
			return errors.New("network partition")
		}
		return nil
	}))

	ok, err := s.PutIfAbsent(ctx, "foo", []byte("bar"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Transact(ctx, store.Txn{}.Then(store.Delete("foo")))
	var unavailable store.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, `store operation "transaction" on "foo" failed: network partition`, err.Error())

	// Failed transaction has no effect
	assert.Equal(t, []string{"foo"}, s.Keys())
	require.Len(t, calls, 2)
	assert.Equal(t, memstore.MethodPutIfAbsent, calls[0].Method)
	assert.Equal(t, []string{"foo"}, calls[1].Txn.Keys())

	// Remove interceptor
	s.SetInterceptor(nil)
	ok, err = s.Transact(ctx, store.Txn{}.Then(store.Delete("foo")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.Keys())

	assert.Equal(t, int64(2), s.Stats().Transactions.Load())
	assert.Equal(t, int64(1), s.Stats().Writes.Load())
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := memstore.New().Get(ctx, "foo")
	var unavailable store.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
