package datastructures_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
)

func TestAtomicLong(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	long, err := d.AtomicLong(ctx, "long", 10, true)
	require.NoError(t, err)

	assertValue := func(expected int64, actual int64, err error) {
		t.Helper()
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	v, err := long.Get(ctx)
	assertValue(10, v, err)
	v, err = long.IncrementAndGet(ctx)
	assertValue(11, v, err)
	v, err = long.DecrementAndGet(ctx)
	assertValue(10, v, err)
	v, err = long.GetAndIncrement(ctx)
	assertValue(10, v, err)
	v, err = long.GetAndDecrement(ctx)
	assertValue(11, v, err)
	v, err = long.AddAndGet(ctx, 5)
	assertValue(15, v, err)
	v, err = long.GetAndAdd(ctx, -20)
	assertValue(15, v, err)
	v, err = long.GetAndSet(ctx, 100)
	assertValue(-5, v, err)
	v, err = long.Get(ctx)
	assertValue(100, v, err)

	ok, err := long.CompareAndSet(ctx, 99, 200)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = long.CompareAndSet(ctx, 100, 200)
	require.NoError(t, err)
	assert.True(t, ok)
	v, err = long.Get(ctx)
	assertValue(200, v, err)
}

func TestAtomicLong_ConcurrentIncrement(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	const initial = 1000
	const workers = 30

	wg := &sync.WaitGroup{}
	for range workers {
		d, _ := newForTest(t, s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			long, err := d.AtomicLong(ctx, "counter", initial, true)
			if assert.NoError(t, err) {
				_, err = long.IncrementAndGet(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	d, _ := newForTest(t, s)
	long, err := d.AtomicLong(ctx, "counter", 0, false)
	require.NoError(t, err)
	v, err := long.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(initial+workers), v)
}

func TestAtomicLong_ConcurrentCompareAndSet(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	long, err := d.AtomicLong(ctx, "cell", 0, true)
	require.NoError(t, err)

	const workers = 20
	winners := atomic.NewInt64(0)
	wg := &sync.WaitGroup{}
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := long.CompareAndSet(ctx, 0, int64(i+1))
			assert.NoError(t, err)
			if ok {
				winners.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load())
	v, err := long.Get(ctx)
	require.NoError(t, err)
	assert.NotZero(t, v)
}

type testValue struct {
	Foo string   `json:"foo"`
	Bar []string `json:"bar,omitempty"`
}

func TestAtomicReference(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	ref, err := datastructures.OpenAtomicReference(ctx, d, "ref", testValue{Foo: "a"}, true)
	require.NoError(t, err)

	v, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, testValue{Foo: "a"}, v)

	// Values are compared by content
	ok, err := ref.CompareAndSet(ctx, testValue{Foo: "b"}, testValue{Foo: "c"})
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = ref.CompareAndSet(ctx, testValue{Foo: "a"}, testValue{Foo: "b", Bar: []string{"x"}})
	require.NoError(t, err)
	assert.True(t, ok)

	v, err = ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, testValue{Foo: "b", Bar: []string{"x"}}, v)

	require.NoError(t, ref.Set(ctx, testValue{Foo: "d"}))
	v, err = ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, testValue{Foo: "d"}, v)

	// Another handle, the init value is ignored
	ref2, err := datastructures.OpenAtomicReference(ctx, d, "ref", testValue{Foo: "ignored"}, true)
	require.NoError(t, err)
	v, err = ref2.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, testValue{Foo: "d"}, v)
}

func TestAtomicReference_Pointer(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	ref, err := datastructures.OpenAtomicReference[*testValue](ctx, d, "ref", nil, true)
	require.NoError(t, err)

	v, err := ref.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)

	ok, err := ref.CompareAndSet(ctx, nil, &testValue{Foo: "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	v, err = ref.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &testValue{Foo: "a"}, v)
}

func TestAtomicStamped(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	stamped, err := datastructures.OpenAtomicStamped(ctx, d, "stamped", "value1", int64(1), true)
	require.NoError(t, err)

	value, stamp, err := stamped.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value1", value)
	assert.Equal(t, int64(1), stamp)

	// Stamp doesn't match
	ok, err := stamped.CompareAndSet(ctx, "value1", "value2", 2, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// Value doesn't match
	ok, err = stamped.CompareAndSet(ctx, "value2", "value3", 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = stamped.CompareAndSet(ctx, "value1", "value2", 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	value, err = stamped.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value2", value)
	stamp, err = stamped.Stamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stamp)

	require.NoError(t, stamped.Set(ctx, "value3", 10))
	value, stamp, err = stamped.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "value3", value)
	assert.Equal(t, int64(10), stamp)

	// Removed
	removed, err := d.RemoveAtomicStamped(ctx, "stamped")
	require.NoError(t, err)
	assert.True(t, removed)
	_, _, err = stamped.Get(ctx)
	require.ErrorIs(t, err, datastructures.ErrNotFound)
}
