package datastructures_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func TestCountDownLatch_AutoDelete(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	d, logger := newForTest(t, s)

	latch, err := d.CountDownLatch(ctx, "latch", 3, true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, latch.InitialCount())
	assert.True(t, latch.AutoDelete())

	for range 2 {
		_, err := latch.CountDown(ctx)
		require.NoError(t, err)
	}

	count, err := latch.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reached, err := latch.Await(ctx, 0)
	require.NoError(t, err)
	assert.False(t, reached)

	count, err = latch.CountDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The latch has been deleted
	assert.Empty(t, s.Keys())
	_, err = latch.Count(ctx)
	require.ErrorIs(t, err, datastructures.ErrNotFound)
	_, err = latch.CountDown(ctx)
	require.ErrorIs(t, err, datastructures.ErrNotFound)
	fetched, err := d.CountDownLatch(ctx, "latch", 3, true, false)
	require.NoError(t, err)
	assert.Nil(t, fetched)

	// Await considers the deleted latch reached
	reached, err = latch.Await(ctx, 0)
	require.NoError(t, err)
	assert.True(t, reached)

	assert.Empty(t, logger.WarnAndErrorMessages())
}

func TestCountDownLatch_NoAutoDelete(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, _ := newForTest(t, nil)

	latch, err := d.CountDownLatch(ctx, "latch", 10, false, true)
	require.NoError(t, err)

	count, err := latch.CountDownN(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	_, err = latch.CountDownN(ctx, 0)
	require.Error(t, err)

	// Floored at zero
	count, err = latch.CountDownN(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	count, err = latch.CountDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	reached, err := latch.Await(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, reached)

	latch2, err := d.CountDownLatch(ctx, "latch2", 5, false, true)
	require.NoError(t, err)
	count, err = latch2.CountDownAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Removed explicitly, Await reports the error
	removed, err := d.RemoveCountDownLatch(ctx, "latch2")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = latch2.Await(ctx, 0)
	require.ErrorIs(t, err, datastructures.ErrNotFound)
}

func TestCountDownLatch_InvalidCount(t *testing.T) {
	t.Parallel()
	d, _ := newForTest(t, nil)
	_, err := d.CountDownLatch(t.Context(), "latch", -1, false, true)
	require.Error(t, err)
	assert.Equal(t, `count of the latch "latch" cannot be negative, found -1`, err.Error())
}

func TestCountDownLatch_Await(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	d, clk := newForTestWithFakeClock(t)
	pollInterval := testConfig().LatchMaxPollInterval

	latch, err := d.CountDownLatch(ctx, "latch", 2, true, true)
	require.NoError(t, err)

	await := func() <-chan bool {
		result := make(chan bool, 1)
		go func() {
			reached, err := latch.Await(ctx, time.Hour)
			assert.NoError(t, err)
			result <- reached
		}()
		// Timeout timer and poll timer
		require.NoError(t, clk.BlockUntilContext(ctx, 2))
		return result
	}

	// Timeout
	start := clk.Now()
	result := await()
	assert.Empty(t, result)
	assert.False(t, receiveAdvancing(t, clk, time.Minute, result))
	assert.GreaterOrEqual(t, clk.Since(start), time.Hour)

	// Count down from other handle
	start = clk.Now()
	result = await()
	other, err := d.CountDownLatch(ctx, "latch", 0, false, false)
	require.NoError(t, err)
	for range 2 {
		_, err = other.CountDown(ctx)
		require.NoError(t, err)
	}
	assert.True(t, receiveAdvancing(t, clk, pollInterval, result))
	assert.Less(t, clk.Since(start), time.Hour)
}

func TestCountDownLatch_Await_Canceled(t *testing.T) {
	t.Parallel()
	d, _ := newForTest(t, nil)

	latch, err := d.CountDownLatch(t.Context(), "latch", 1, false, true)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	reached, err := latch.Await(ctx, 10*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, reached)
}

func TestCountDownLatch_AutoDeleteFailed(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	s := memstore.New()
	d, logger := newForTest(t, s)

	latch, err := d.CountDownLatch(ctx, "latch", 1, true, true)
	require.NoError(t, err)

	s.SetInterceptor(func(call memstore.Call) error {
		if call.Method == memstore.MethodTransact {
			return errors.New("connection lost")
		}
		return nil
	})

	// The latch reached zero, the delete error is only logged
	count, err := latch.CountDown(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	logger.AssertJSONMessages(t, `
{"level":"warn","message":"cannot delete latch \"latch\" which reached zero: store operation \"transaction\" on \"ds/meta/latch\" failed: connection lost","component":"datastructures.countDownLatch"}
`)

	s.SetInterceptor(nil)
	assert.Equal(t, []string{"ds/meta/latch"}, s.Keys())
	reached, err := latch.Await(ctx, 0)
	require.NoError(t, err)
	assert.True(t, reached)
}
