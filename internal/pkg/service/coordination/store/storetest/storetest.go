// Package storetest provides a test suite, which must pass for each store.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
)

// Run runs the suite. The store must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	// Sub-tests share the store, each uses own key prefix
	t.Run("Get", func(t *testing.T) { testGet(t, s) })
	t.Run("PutIfAbsent", func(t *testing.T) { testPutIfAbsent(t, s) })
	t.Run("PutIfAbsentConcurrent", func(t *testing.T) { testPutIfAbsentConcurrent(t, s) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, s) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, s) })
	t.Run("ScanPrefix", func(t *testing.T) { testScanPrefix(t, s) })
	t.Run("Transact", func(t *testing.T) { testTransact(t, s) })
	t.Run("TransactTooLarge", func(t *testing.T) { testTransactTooLarge(t, s) })
	if w, ok := s.(store.Watcher); ok {
		t.Run("WaitForChange", func(t *testing.T) { testWaitForChange(t, s, w) })
	}
}

func testGet(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	entry, err := s.Get(ctx, "get/missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	ok, err := s.PutIfAbsent(ctx, "get/key", []byte("value"))
	require.NoError(t, err)
	require.True(t, ok)

	entry, err = s.Get(ctx, "get/key")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "get/key", entry.Key)
	assert.Equal(t, []byte("value"), entry.Value)
	assert.Positive(t, entry.Version)
	assert.Equal(t, entry.Version, entry.CreateVersion)
}

func testPutIfAbsent(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	ok, err := s.PutIfAbsent(ctx, "put/key", []byte("first"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.PutIfAbsent(ctx, "put/key", []byte("second"))
	require.NoError(t, err)
	assert.False(t, ok)

	entry, err := s.Get(ctx, "put/key")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("first"), entry.Value)
}

func testPutIfAbsentConcurrent(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	const racers = 10
	wg := &sync.WaitGroup{}
	results := make(chan bool, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.PutIfAbsent(ctx, "race/key", fmt.Appendf(nil, "racer %d", i))
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func testCompareAndSwap(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	// Zero version means the key must not exist
	ok, err := s.CompareAndSwap(ctx, "cas/key", 0, []byte("v1"))
	require.NoError(t, err)
	require.True(t, ok)

	v1, err := s.Get(ctx, "cas/key")
	require.NoError(t, err)
	require.NotNil(t, v1)

	ok, err = s.CompareAndSwap(ctx, "cas/key", 0, []byte("unexpected"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CompareAndSwap(ctx, "cas/key", v1.Version, []byte("v2"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Version has been changed
	ok, err = s.CompareAndSwap(ctx, "cas/key", v1.Version, []byte("v3"))
	require.NoError(t, err)
	assert.False(t, ok)

	v2, err := s.Get(ctx, "cas/key")
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.Equal(t, []byte("v2"), v2.Value)
	assert.Greater(t, v2.Version, v1.Version)
	assert.Equal(t, v1.CreateVersion, v2.CreateVersion)

	// Missing key
	ok, err = s.CompareAndSwap(ctx, "cas/missing", v2.Version, []byte("v"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testRemove(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	ok, err := s.Remove(ctx, "remove/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.PutIfAbsent(ctx, "remove/key", []byte("v"))
	require.NoError(t, err)
	require.True(t, ok)
	before, err := s.Get(ctx, "remove/key")
	require.NoError(t, err)
	require.NotNil(t, before)

	ok, err = s.Remove(ctx, "remove/key")
	require.NoError(t, err)
	assert.True(t, ok)

	entry, err := s.Get(ctx, "remove/key")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Re-created key has a new CreateVersion
	ok, err = s.PutIfAbsent(ctx, "remove/key", []byte("v"))
	require.NoError(t, err)
	require.True(t, ok)
	after, err := s.Get(ctx, "remove/key")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Greater(t, after.CreateVersion, before.CreateVersion)
}

func testScanPrefix(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	entries, err := s.ScanPrefix(ctx, "scan/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Insert in reverse order, more keys than a page
	for i := 5; i >= 1; i-- {
		ok, err := s.PutIfAbsent(ctx, fmt.Sprintf("scan/%03d", i), fmt.Appendf(nil, "value %d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := s.PutIfAbsent(ctx, "scan", []byte("outside"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.PutIfAbsent(ctx, "scan0", []byte("outside"))
	require.NoError(t, err)
	require.True(t, ok)

	entries, err = s.ScanPrefix(ctx, "scan/")
	require.NoError(t, err)
	var keys []string
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	assert.Equal(t, []string{"scan/001", "scan/002", "scan/003", "scan/004", "scan/005"}, keys)
	assert.Equal(t, []byte("value 3"), entries[2].Value)
}

func testTransact(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	// Create two keys in one transaction
	ok, err := s.Transact(ctx, store.Txn{}.
		If(store.NotExists("txn/a"), store.NotExists("txn/b")).
		Then(store.Put("txn/a", []byte("a1")), store.Put("txn/b", []byte("b1"))),
	)
	require.NoError(t, err)
	require.True(t, ok)

	a, err := s.Get(ctx, "txn/a")
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := s.Get(ctx, "txn/b")
	require.NoError(t, err)
	require.NotNil(t, b)

	// One failed condition, nothing is applied
	ok, err = s.Transact(ctx, store.Txn{}.
		If(store.VersionIs("txn/a", a.Version), store.NotExists("txn/b")).
		Then(store.Put("txn/a", []byte("a2")), store.Delete("txn/b")),
	)
	require.NoError(t, err)
	assert.False(t, ok)
	entry, err := s.Get(ctx, "txn/a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("a1"), entry.Value)

	// All conditions met, delete of a missing key is a no-op
	ok, err = s.Transact(ctx, store.Txn{}.
		If(store.VersionIs("txn/a", a.Version), store.VersionIs("txn/b", b.Version)).
		Then(store.Put("txn/a", []byte("a2")), store.Delete("txn/b"), store.Delete("txn/missing")),
	)
	require.NoError(t, err)
	assert.True(t, ok)

	entry, err = s.Get(ctx, "txn/a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte("a2"), entry.Value)
	entry, err = s.Get(ctx, "txn/b")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func testTransactTooLarge(t *testing.T, s store.Store) {
	t.Helper()
	ctx := t.Context()

	txn := store.Txn{}
	for i := range s.MaxTxnOps() + 1 {
		txn = txn.Then(store.Put(fmt.Sprintf("large/%04d", i), []byte("v")))
	}

	_, err := s.Transact(ctx, txn)
	var tooLarge store.TxnTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, s.MaxTxnOps()+1, tooLarge.Size)

	entries, err := s.ScanPrefix(ctx, "large/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testWaitForChange(t *testing.T, s store.Store, w store.Watcher) {
	t.Helper()
	ctx := t.Context()

	ok, err := s.PutIfAbsent(ctx, "watch/key", []byte("v1"))
	require.NoError(t, err)
	require.True(t, ok)
	entry, err := s.Get(ctx, "watch/key")
	require.NoError(t, err)
	require.NotNil(t, entry)

	// Timeout, no change
	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	err = w.WaitForChange(waitCtx, "watch/key", entry.Version)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Change
	done := make(chan error, 1)
	go func() {
		done <- w.WaitForChange(ctx, "watch/key", entry.Version)
	}()
	ok, err = s.CompareAndSwap(ctx, "watch/key", entry.Version, []byte("v2"))
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.Fail(t, "timeout")
	}

	// Change happened before the call
	require.NoError(t, w.WaitForChange(ctx, "watch/key", entry.Version))
}
