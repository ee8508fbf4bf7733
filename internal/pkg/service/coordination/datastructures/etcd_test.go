package datastructures_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/etcdstore"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/etcdhelper"
)

func TestDataStructures_Etcd(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	client := etcdhelper.ClientForTest(t)
	d, logger := newForTest(t, etcdstore.New(client), func(cfg *datastructures.Config) {
		cfg.SequenceReserveSize = 5
		// Polling is not used, the etcd store can watch keys
		cfg.LatchPollInterval = time.Hour
		cfg.LatchMaxPollInterval = time.Hour
	})

	// Sequence
	seq, err := d.Sequence(ctx, "seq", 0, true)
	require.NoError(t, err)
	for expected := int64(1); expected <= 7; expected++ {
		v, err := seq.IncrementAndGet(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, v)
	}

	// Atomic long
	long, err := d.AtomicLong(ctx, "long", 10, true)
	require.NoError(t, err)
	ok, err := long.CompareAndSet(ctx, 10, 20)
	require.NoError(t, err)
	assert.True(t, ok)

	// Queue
	queue, err := datastructures.OpenQueue[string](ctx, d, "jobs", 2, true, true)
	require.NoError(t, err)
	require.NoError(t, queue.Offer(ctx, "a"))
	require.NoError(t, queue.Offer(ctx, "b"))
	require.ErrorAs(t, queue.Offer(ctx, "c"), new(datastructures.QueueFullError))

	etcdhelper.AssertKeys(t, client, []string{
		"ds/meta/jobs",
		"ds/meta/long",
		"ds/meta/seq",
		"ds/queue/%s/jobs/00000000000000000000",
		"ds/queue/%s/jobs/00000000000000000001",
	})

	item, ok, err := queue.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", item)

	// Latch, Await uses etcd watch
	latch, err := d.CountDownLatch(ctx, "latch", 1, true, true)
	require.NoError(t, err)
	done := make(chan bool, 1)
	go func() {
		reached, err := latch.Await(ctx, time.Minute)
		assert.NoError(t, err)
		done <- reached
	}()
	time.Sleep(50 * time.Millisecond)
	_, err = latch.CountDown(ctx)
	require.NoError(t, err)
	select {
	case reached := <-done:
		assert.True(t, reached)
	case <-time.After(10 * time.Second):
		require.Fail(t, "timeout")
	}

	// Remove queue
	removed, err := d.RemoveQueueBatched(ctx, "jobs", 1)
	require.NoError(t, err)
	assert.True(t, removed)

	etcdhelper.AssertKeys(t, client, []string{
		"ds/meta/long",
		"ds/meta/seq",
	})
	assert.Empty(t, logger.WarnAndErrorMessages())
}
