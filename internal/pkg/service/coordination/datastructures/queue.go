package datastructures

import (
	"cmp"
	"context"
	"slices"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// Queue is a cluster-wide FIFO queue of items of the type T.
//
// The metadata record contains head and tail indexes, each item is stored in a separate element key.
// Offer and Poll modify the element and the metadata in one transaction,
// so elements exist only in the range [head, tail).
//
// Offer and Poll never block, Put and Take retry them until the context is cancelled.
type Queue[T any] struct {
	*handle
	capacity   int
	collocated bool
}

// element is one stored queue item.
type element struct {
	index int64
	entry store.Entry
}

func newQueue[T any](h *handle, rec *record) *Queue[T] {
	return &Queue[T]{handle: h, capacity: rec.Queue.Capacity, collocated: rec.Queue.Collocated}
}

// Capacity returns max number of items, zero means an unbounded queue.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

func (q *Queue[T]) Bounded() bool {
	return q.capacity > 0
}

func (q *Queue[T]) Collocated() bool {
	return q.collocated
}

// Size returns number of items in the queue, the value may be outdated immediately.
func (q *Queue[T]) Size(ctx context.Context) (int, error) {
	_, rec, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return int(rec.Queue.Tail - rec.Queue.Head), nil
}

// Offer appends the item to the tail of the queue.
// The QueueFullError is returned if the bounded queue is full.
func (q *Queue[T]) Offer(ctx context.Context, item T) error {
	value, err := encodeValue(item)
	if err != nil {
		return err
	}

	for {
		entry, rec, err := q.load(ctx)
		if err != nil {
			return err
		}

		state := rec.Queue
		if q.Bounded() && state.Tail-state.Head >= int64(state.Capacity) {
			return QueueFullError{Name: q.name, Capacity: state.Capacity}
		}

		elementKey := q.elementKey(state.Tail)
		state.Tail++
		meta, err := encodeRecord(rec)
		if err != nil {
			return err
		}

		ok, err := q.d.store.Transact(ctx, store.Txn{}.
			If(store.VersionIs(q.key, entry.Version)).
			Then(store.Put(elementKey, value), store.Put(q.key, meta)),
		)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

// Poll removes and returns the item from the head of the queue.
// False is returned if the queue is empty.
func (q *Queue[T]) Poll(ctx context.Context) (T, bool, error) {
	var empty T
	for {
		entry, rec, elem, err := q.head(ctx)
		if err != nil || elem == nil {
			return empty, false, err
		}

		// A corrupted item is reported, the queue is not modified
		item, err := decodeValue[T](elem.Value)
		if err != nil {
			return empty, false, errors.PrefixErrorf(err, `cannot decode item %d of the queue "%s"`, rec.Queue.Head, q.name)
		}

		rec.Queue.Head++
		meta, err := encodeRecord(rec)
		if err != nil {
			return empty, false, err
		}

		ok, err := q.d.store.Transact(ctx, store.Txn{}.
			If(store.VersionIs(q.key, entry.Version), store.VersionIs(elem.Key, elem.Version)).
			Then(store.Delete(elem.Key), store.Put(q.key, meta)),
		)
		if err != nil {
			return empty, false, err
		}
		if ok {
			return item, true, nil
		}
	}
}

// Peek returns the item from the head of the queue, without removing it.
// False is returned if the queue is empty.
func (q *Queue[T]) Peek(ctx context.Context) (T, bool, error) {
	var empty T
	_, _, elem, err := q.head(ctx)
	if err != nil || elem == nil {
		return empty, false, err
	}
	item, err := decodeValue[T](elem.Value)
	return item, err == nil, err
}

// Put appends the item, it waits for a free space, if the bounded queue is full.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	return q.retry(ctx, func() error {
		err := q.Offer(ctx, item)
		if errors.As(err, new(QueueFullError)) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	})
}

// Take removes and returns the item from the head of the queue, it waits for an item, if the queue is empty.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var item T
	err := q.retry(ctx, func() error {
		v, ok, err := q.Poll(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errors.Errorf(`queue "%s" is empty`, q.name)
		}
		item = v
		return nil
	})
	return item, err
}

// Items returns a snapshot of all items, from the head to the tail.
func (q *Queue[T]) Items(ctx context.Context) ([]T, error) {
	_, rec, err := q.load(ctx)
	if err != nil {
		return nil, err
	}

	elements, err := q.d.scanElements(ctx, q.name, q.collocated)
	if err != nil {
		return nil, err
	}

	var out []T
	for _, elem := range elements {
		if elem.index < rec.Queue.Head || elem.index >= rec.Queue.Tail {
			continue
		}
		item, err := decodeValue[T](elem.entry.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Clear removes all items, the queue remains.
// Items are deleted in transactions of at most batchSize keys, zero means the default batch size.
func (q *Queue[T]) Clear(ctx context.Context, batchSize int) error {
	if batchSize <= 0 {
		batchSize = q.d.config.RemoveBatchSize
	}
	// One operation of the transaction is the metadata update
	batchSize = min(batchSize, q.d.store.MaxTxnOps()-1)

	var target int64 = -1
	for {
		entry, rec, err := q.load(ctx)
		if err != nil {
			return err
		}

		// Items offered during the clear are kept
		state := rec.Queue
		if target < 0 {
			target = state.Tail
		}
		if state.Head >= target {
			return nil
		}

		txn := store.Txn{}.If(store.VersionIs(q.key, entry.Version))
		end := min(state.Head+int64(batchSize), target)
		for index := state.Head; index < end; index++ {
			txn = txn.Then(store.Delete(q.elementKey(index)))
		}

		state.Head = end
		meta, err := encodeRecord(rec)
		if err != nil {
			return err
		}

		if _, err := q.d.store.Transact(ctx, txn.Then(store.Put(q.key, meta))); err != nil {
			return err
		}
	}
}

// head returns the element at the head of the queue, nil element is returned if the queue is empty.
func (q *Queue[T]) head(ctx context.Context) (*store.Entry, *record, *store.Entry, error) {
	for {
		entry, rec, err := q.load(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		if rec.Queue.Head == rec.Queue.Tail {
			return nil, nil, nil, nil
		}

		elem, err := q.d.store.Get(ctx, q.elementKey(rec.Queue.Head))
		if err != nil {
			return nil, nil, nil, err
		}
		if elem != nil {
			return entry, rec, elem, nil
		}

		// The element has been polled concurrently, so the metadata must have been modified
		current, err := q.d.store.Get(ctx, q.key)
		if err != nil {
			return nil, nil, nil, err
		}
		if current != nil && current.Version == entry.Version {
			return nil, nil, nil, errors.Errorf(`queue "%s" is inconsistent: element %d is missing`, q.name, rec.Queue.Head)
		}
	}
}

func (q *Queue[T]) elementKey(index int64) string {
	return q.d.keys.element(q.name, q.collocated, index)
}

// retry invokes the operation until it succeeds, waiting between attempts is measured by the clock of the DataStructures.
func (q *Queue[T]) retry(ctx context.Context, op backoff.Operation) error {
	return backoff.RetryNotifyWithTimer(op, backoff.WithContext(q.newRetryBackoff(), ctx), nil, newClockTimer(q.d.clock))
}

func (q *Queue[T]) newRetryBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.InitialInterval = q.d.config.QueueRetryInterval
	b.MaxInterval = q.d.config.QueueMaxRetryInterval
	b.MaxElapsedTime = 0 // don't stop
	b.Clock = q.d.clock
	b.Reset()
	return b
}

// scanElements returns all stored elements of the queue, sorted by index.
// Partitions of a not collocated queue are scanned in parallel.
func (d *DataStructures) scanElements(ctx context.Context, name string, collocated bool) ([]element, error) {
	prefixes := d.keys.elementsPrefixes(name, collocated)
	results := make([][]store.Entry, len(prefixes))

	grp, grpCtx := errgroup.WithContext(ctx)
	for i, prefix := range prefixes {
		grp.Go(func() error {
			entries, err := d.store.ScanPrefix(grpCtx, prefix)
			results[i] = entries
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var out []element
	for _, entries := range results {
		for _, entry := range entries {
			index, err := parseIndex(entry.Key)
			if err != nil {
				return nil, errors.PrefixErrorf(err, `invalid element key "%s"`, entry.Key)
			}
			out = append(out, element{index: index, entry: entry})
		}
	}

	slices.SortFunc(out, func(a, b element) int {
		return cmp.Compare(a.index, b.index)
	})
	return out, nil
}
