package datastructures

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// CountDownLatch is a cluster-wide counter, which can only be decreased.
// Await blocks until the count reaches zero.
//
// If the auto delete is enabled, the latch is removed from the store when the count reaches zero.
// Then all operations except Await return the StaleHandleError.
type CountDownLatch struct {
	*handle
	initialCount int
	autoDelete   bool
}

func newCountDownLatch(h *handle, rec *record) *CountDownLatch {
	return &CountDownLatch{handle: h, initialCount: rec.Latch.InitialCount, autoDelete: rec.Latch.AutoDelete}
}

func (l *CountDownLatch) InitialCount() int {
	return l.initialCount
}

func (l *CountDownLatch) AutoDelete() bool {
	return l.autoDelete
}

func (l *CountDownLatch) Count(ctx context.Context) (int, error) {
	_, rec, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return rec.Latch.Count, nil
}

// CountDown decrements the count by one and returns the new count.
func (l *CountDownLatch) CountDown(ctx context.Context) (int, error) {
	return l.CountDownN(ctx, 1)
}

// CountDownAll sets the count to zero.
func (l *CountDownLatch) CountDownAll(ctx context.Context) (int, error) {
	return l.countDown(ctx, func(int) int { return 0 })
}

// CountDownN decrements the count by n and returns the new count, the count is floored at zero.
func (l *CountDownLatch) CountDownN(ctx context.Context, n int) (int, error) {
	if n < 1 {
		return 0, errors.Errorf(`latch "%s" can be decremented only by a positive number, found %d`, l.name, n)
	}
	return l.countDown(ctx, func(count int) int { return max(0, count-n) })
}

func (l *CountDownLatch) countDown(ctx context.Context, fn func(count int) int) (int, error) {
	rec, written, err := l.update(ctx, func(rec *record) (bool, error) {
		if rec.Latch.Count == 0 {
			return false, nil
		}
		rec.Latch.Count = fn(rec.Latch.Count)
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	count := rec.Latch.Count
	if written && count == 0 {
		l.logger.Debugf(ctx, `latch "%s" reached zero`, l.name)
		if l.autoDelete {
			l.deleteReached(ctx)
		}
	}
	return count, nil
}

// deleteReached removes the latch which reached zero.
// The latch has already been released, so an error is only logged.
func (l *CountDownLatch) deleteReached(ctx context.Context) {
	err := func() error {
		entry, rec, err := l.load(ctx)
		if err != nil {
			return err
		}
		if rec.Latch.Count != 0 {
			return nil
		}
		_, err = l.d.store.Transact(ctx, store.Txn{}.If(store.VersionIs(l.key, entry.Version)).Then(store.Delete(l.key)))
		return err
	}()

	if err == nil {
		l.logger.Debugf(ctx, `latch "%s" has been deleted`, l.name)
	} else if !errors.Is(err, ErrNotFound) {
		l.logger.Warnf(ctx, `cannot delete latch "%s" which reached zero: %s`, l.name, err)
	}
}

// Await blocks until the count reaches zero or the timeout expires.
// It returns false on the timeout, a zero timeout checks the count only once.
// A removed auto delete latch is considered reached.
// The timeout and the polling interval are measured by the clock of the DataStructures.
func (l *CountDownLatch) Await(ctx context.Context, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		timer := l.d.clock.AfterFunc(timeout, cancel)
		defer timer.Stop()
	}

	var poll *backoff.ExponentialBackOff
	for {
		entry, rec, err := l.load(waitCtx)
		switch {
		case errors.As(err, new(StaleHandleError)) && l.autoDelete:
			return true, nil
		case err != nil && waitCtx.Err() != nil && ctx.Err() == nil:
			// Timeout during the read
			return false, nil
		case err != nil:
			return false, err
		case rec.Latch.Count == 0:
			return true, nil
		case timeout <= 0:
			return false, nil
		}

		if watcher, ok := l.d.store.(store.Watcher); ok {
			err = watcher.WaitForChange(waitCtx, l.key, entry.Version)
		} else {
			if poll == nil {
				poll = l.newPollBackoff()
			}
			err = wait(waitCtx, l.d.clock, poll.NextBackOff())
		}

		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if waitCtx.Err() != nil {
				return false, nil
			}
			return false, err
		}
	}
}

func (l *CountDownLatch) newPollBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.InitialInterval = l.d.config.LatchPollInterval
	b.MaxInterval = l.d.config.LatchMaxPollInterval
	b.MaxElapsedTime = 0 // don't stop
	b.Clock = l.d.clock
	b.Reset()
	return b
}
