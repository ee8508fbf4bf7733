package datastructures_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
)

func TestSequence(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	d, _ := newForTest(t, s, func(cfg *datastructures.Config) {
		cfg.SequenceReserveSize = 10
	})

	seq1, err := d.Sequence(ctx, "seq", 100, true)
	require.NoError(t, err)
	assert.Equal(t, "seq", seq1.Name())
	assert.Equal(t, 10, seq1.BatchSize())
	assert.Equal(t, int64(100), seq1.Get())
	assert.Equal(t, int64(1), s.Stats().Writes.Load())

	// The first value is reserved by one write
	v, err := seq1.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), v)
	assert.Equal(t, int64(101), seq1.Get())
	assert.Equal(t, int64(2), s.Stats().Writes.Load())

	// Another handle starts after the reserved window
	seq2, err := d.Sequence(ctx, "seq", 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(110), seq2.Get())
	v, err = seq2.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(111), v)

	// Values from the local window, no write
	for expected := int64(102); expected <= 110; expected++ {
		v, err = seq1.IncrementAndGet(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}
	assert.Equal(t, int64(3), s.Stats().Writes.Load())

	// The window is exhausted, next window starts after the seq2 window
	v, err = seq1.GetAndIncrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), v)
	assert.Equal(t, int64(121), seq1.Get())
	assert.Equal(t, int64(4), s.Stats().Writes.Load())

	// Increment larger than the batch size
	v, err = seq1.AddAndGet(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(126), v)
	v, err = seq1.AddAndGet(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(155), v)
	v, err = seq1.GetAndAdd(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(155), v)
	assert.Equal(t, int64(157), seq1.Get())

	// Invalid increment
	_, err = seq1.AddAndGet(ctx, 0)
	require.Error(t, err)
	assert.Equal(t, `sequence "seq" can be increased only by a positive number, found 0`, err.Error())

	// Batch size
	require.Error(t, seq1.SetBatchSize(0))
	require.NoError(t, seq1.SetBatchSize(100))
	assert.Equal(t, 100, seq1.BatchSize())
}

func TestSequence_Uniqueness(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	const accessors = 5
	const valuesPerAccessor = 200

	wg := &sync.WaitGroup{}
	values := make([][]int64, accessors)
	for i := range accessors {
		d, _ := newForTest(t, s, func(cfg *datastructures.Config) {
			cfg.SequenceReserveSize = 7
		})
		seq, err := d.Sequence(ctx, "seq", 0, true)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for range valuesPerAccessor {
				v, err := seq.IncrementAndGet(ctx)
				if !assert.NoError(t, err) {
					return
				}
				values[i] = append(values[i], v)
			}
		}()
	}
	wg.Wait()

	unique := make(map[int64]bool)
	for _, accessorValues := range values {
		require.Len(t, accessorValues, valuesPerAccessor)
		for j, v := range accessorValues {
			if j > 0 {
				assert.Greater(t, v, accessorValues[j-1], "values of an accessor must be strictly increasing")
			}
			assert.False(t, unique[v], "value %d is duplicated", v)
			unique[v] = true
		}
	}
	assert.Len(t, unique, accessors*valuesPerAccessor)
}

func TestSequence_SharedHandle(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil, func(cfg *datastructures.Config) {
		cfg.SequenceReserveSize = 3
	})

	seq, err := d.Sequence(ctx, "seq", 0, true)
	require.NoError(t, err)

	const goroutines = 10
	wg := &sync.WaitGroup{}
	results := make(chan int64, goroutines*10)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				v, err := seq.IncrementAndGet(ctx)
				assert.NoError(t, err)
				results <- v
			}
		}()
	}
	wg.Wait()
	close(results)

	unique := make(map[int64]bool)
	for v := range results {
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*10)
	assert.Equal(t, int64(goroutines*10), seq.Get())
}

func TestSequence_Removed(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil, func(cfg *datastructures.Config) {
		cfg.SequenceReserveSize = 2
	})

	seq, err := d.Sequence(ctx, "seq", 0, true)
	require.NoError(t, err)
	_, err = seq.IncrementAndGet(ctx)
	require.NoError(t, err)

	removed, err := d.RemoveSequence(ctx, "seq")
	require.NoError(t, err)
	assert.True(t, removed)

	// The local window is still used
	v, err := seq.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// The reservation fails
	_, err = seq.IncrementAndGet(ctx)
	require.ErrorIs(t, err, datastructures.ErrNotFound)
}

func TestSequence_Overflow(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	d, _ := newForTest(t, s, func(cfg *datastructures.Config) {
		cfg.SequenceReserveSize = 10
	})

	// The increment overflows the last issued value, nothing is issued
	seq, err := d.Sequence(ctx, "small", 0, true)
	require.NoError(t, err)
	v, err := seq.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	writes := s.Stats().Writes.Load()
	_, err = seq.AddAndGet(ctx, math.MaxInt64)
	require.Error(t, err)
	assert.Equal(t, `sequence "small" overflow: cannot add 9223372036854775807 to 1`, err.Error())
	assert.ErrorAs(t, err, new(datastructures.SequenceOverflowError))
	assert.Equal(t, writes, s.Stats().Writes.Load())
	v, err = seq.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// The window is shortened at the end of the range
	seq1, err := d.Sequence(ctx, "large", math.MaxInt64-3, true)
	require.NoError(t, err)
	seq2, err := d.Sequence(ctx, "large", 0, false)
	require.NoError(t, err)
	for _, expected := range []int64{math.MaxInt64 - 2, math.MaxInt64 - 1, math.MaxInt64} {
		v, err = seq1.IncrementAndGet(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}

	// The handle reached the max value
	_, err = seq1.IncrementAndGet(ctx)
	require.Error(t, err)
	assert.Equal(t, `sequence "large" overflow: cannot add 1 to 9223372036854775807`, err.Error())
	assert.Equal(t, int64(math.MaxInt64), seq1.Get())

	// The shared counter reached the max value, the reservation fails
	_, err = seq2.IncrementAndGet(ctx)
	require.Error(t, err)
	assert.Equal(t, `sequence "large" overflow: cannot add 1 to 9223372036854775807`, err.Error())
	assert.Equal(t, int64(math.MaxInt64-3), seq2.Get())

	// The stored counter has not wrapped
	long, err := d.Sequence(ctx, "large", 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), long.Get())
}
