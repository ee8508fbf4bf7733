// Package datastructures provides named cluster-wide coordination primitives on top of the store.Store:
// atomic sequence, atomic long, atomic reference, atomic stamped, count down latch and queue.
//
// Each data structure is identified by a name. The name is bound to exactly one kind of data structure,
// a metadata record is stored under a key derived from the name.
// The record is created by the put-if-absent operation, so concurrent fetch-or-create calls
// from many nodes create the data structure exactly once. The losing callers wrap the winner's record,
// their init arguments are ignored.
//
// Handles returned by the DataStructures are thin, all state lives in the store.
// There is no lock across multiple store operations, all mutations are compare-and-swap loops
// or bounded multi-key transactions.
package datastructures

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/placement"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// maxCreateAttempts bounds fetch-or-create if the data structure is removed between the create and the re-read.
const maxCreateAttempts = 3

type DataStructures struct {
	config    Config
	nodeID    string
	clock     clockwork.Clock
	logger    log.Logger
	telemetry telemetry.Telemetry
	store     store.Store
	keys      keys
	metrics   metrics
}

type metrics struct {
	removalDuration metric.Float64Histogram
	removedElements metric.Int64Counter
}

type dependencies interface {
	Clock() clockwork.Clock
	Logger() log.Logger
	Telemetry() telemetry.Telemetry
	Store() store.Store
}

func New(d dependencies, cfg Config) (*DataStructures, error) {
	placer, err := placement.New(cfg.Partitions)
	if err != nil {
		return nil, err
	}

	nodeID := strings.ToLower(ulid.Make().String())
	meter := d.Telemetry().Meter()
	return &DataStructures{
		config:    cfg,
		nodeID:    nodeID,
		clock:     d.Clock(),
		logger:    d.Logger().WithComponent("datastructures").With(attribute.String("node.id", nodeID)),
		telemetry: d.Telemetry(),
		store:     d.Store(),
		keys:      newKeys(cfg.Prefix, placer),
		metrics: metrics{
			removalDuration: telemetry.Histogram(meter, "keboola.go.coordination.queue.removal.duration", "Duration of the queue removal.", "ms"),
			removedElements: telemetry.Counter(meter, "keboola.go.coordination.queue.removal.elements", "Count of elements deleted by the queue removal.", "1"),
		},
	}, nil
}

// NodeID is a unique ID of the DataStructures instance, it is part of log messages.
func (d *DataStructures) NodeID() string {
	return d.nodeID
}

// Sequence fetches the sequence or creates it, if create is true.
// Nil is returned if the sequence does not exist and create is false.
func (d *DataStructures) Sequence(ctx context.Context, name string, initVal int64, create bool) (*Sequence, error) {
	h, rec, err := d.fetchOrCreate(ctx, KindSequence, name, create, initVal, func(r *record) {
		r.Long = &longState{Value: initVal}
	})
	if h == nil || err != nil {
		return nil, err
	}
	return newSequence(h, rec, d.config.SequenceReserveSize), nil
}

// AtomicLong fetches the atomic long or creates it, if create is true.
// Nil is returned if the atomic long does not exist and create is false.
func (d *DataStructures) AtomicLong(ctx context.Context, name string, initVal int64, create bool) (*AtomicLong, error) {
	h, _, err := d.fetchOrCreate(ctx, KindAtomicLong, name, create, initVal, func(r *record) {
		r.Long = &longState{Value: initVal}
	})
	if h == nil || err != nil {
		return nil, err
	}
	return &AtomicLong{handle: h}, nil
}

// CountDownLatch fetches the latch or creates it, if create is true.
// Nil is returned if the latch does not exist and create is false.
// If autoDelete is true, the latch is deleted when the count reaches zero.
func (d *DataStructures) CountDownLatch(ctx context.Context, name string, count int, autoDelete, create bool) (*CountDownLatch, error) {
	if count < 0 {
		return nil, errors.Errorf(`count of the latch "%s" cannot be negative, found %d`, name, count)
	}

	initArgs := latchState{Count: count, InitialCount: count, AutoDelete: autoDelete}
	h, rec, err := d.fetchOrCreate(ctx, KindCountDownLatch, name, create, initArgs, func(r *record) {
		r.Latch = &initArgs
	})
	if h == nil || err != nil {
		return nil, err
	}
	return newCountDownLatch(h, rec), nil
}

// OpenAtomicReference fetches the atomic reference or creates it, if create is true.
// Nil is returned if the atomic reference does not exist and create is false.
func OpenAtomicReference[T any](ctx context.Context, d *DataStructures, name string, initVal T, create bool) (*AtomicReference[T], error) {
	value, err := encodeValue(initVal)
	if err != nil {
		return nil, err
	}

	h, _, err := d.fetchOrCreate(ctx, KindAtomicReference, name, create, value, func(r *record) {
		r.Ref = &refState{Value: value}
	})
	if h == nil || err != nil {
		return nil, err
	}
	return &AtomicReference[T]{handle: h}, nil
}

// OpenAtomicStamped fetches the atomic stamped or creates it, if create is true.
// Nil is returned if the atomic stamped does not exist and create is false.
func OpenAtomicStamped[T, S any](ctx context.Context, d *DataStructures, name string, initVal T, initStamp S, create bool) (*AtomicStamped[T, S], error) {
	value, err := encodeValue(initVal)
	if err != nil {
		return nil, err
	}
	stamp, err := encodeValue(initStamp)
	if err != nil {
		return nil, err
	}

	initArgs := refState{Value: value, Stamp: stamp}
	h, _, err := d.fetchOrCreate(ctx, KindAtomicStamped, name, create, initArgs, func(r *record) {
		r.Ref = &initArgs
	})
	if h == nil || err != nil {
		return nil, err
	}
	return &AtomicStamped[T, S]{handle: h}, nil
}

// OpenQueue fetches the queue or creates it, if create is true.
// Nil is returned if the queue does not exist and create is false.
// Zero capacity means an unbounded queue.
// Elements of a collocated queue are stored in one partition, otherwise elements are spread by index.
func OpenQueue[T any](ctx context.Context, d *DataStructures, name string, capacity int, collocated, create bool) (*Queue[T], error) {
	if capacity < 0 {
		return nil, errors.Errorf(`capacity of the queue "%s" cannot be negative, found %d`, name, capacity)
	}

	initArgs := queueState{Capacity: capacity, Collocated: collocated}
	h, rec, err := d.fetchOrCreate(ctx, KindQueue, name, create, initArgs, func(r *record) {
		r.Queue = &initArgs
	})
	if h == nil || err != nil {
		return nil, err
	}
	return newQueue[T](h, rec), nil
}

func (d *DataStructures) RemoveSequence(ctx context.Context, name string) (bool, error) {
	return d.remove(ctx, KindSequence, name)
}

func (d *DataStructures) RemoveAtomicLong(ctx context.Context, name string) (bool, error) {
	return d.remove(ctx, KindAtomicLong, name)
}

func (d *DataStructures) RemoveAtomicReference(ctx context.Context, name string) (bool, error) {
	return d.remove(ctx, KindAtomicReference, name)
}

func (d *DataStructures) RemoveAtomicStamped(ctx context.Context, name string) (bool, error) {
	return d.remove(ctx, KindAtomicStamped, name)
}

func (d *DataStructures) RemoveCountDownLatch(ctx context.Context, name string) (bool, error) {
	return d.remove(ctx, KindCountDownLatch, name)
}

// RemoveQueue removes the queue and all its elements in one transaction.
// The transaction is limited by the store.Store MaxTxnOps, use RemoveQueueBatched for large queues.
func (d *DataStructures) RemoveQueue(ctx context.Context, name string) (bool, error) {
	return d.RemoveQueueBatched(ctx, name, 0)
}

// RemoveQueueBatched removes the queue, elements are deleted in transactions of at most batchSize keys.
// If the removal fails in the middle, it can be safely invoked again.
func (d *DataStructures) RemoveQueueBatched(ctx context.Context, name string, batchSize int) (bool, error) {
	return d.removalCoordinator().RemoveAll(ctx, name, batchSize)
}

// fetchOrCreate is the only place where handles are created.
// The init callback sets the kind specific state of a new record.
func (d *DataStructures) fetchOrCreate(ctx context.Context, kind Kind, name string, create bool, initArgs any, init func(r *record)) (h *handle, rec *record, err error) {
	ctx, span := d.telemetry.Tracer().Start(ctx, "keboola.go.coordination.datastructures.fetchOrCreate", trace.WithAttributes(
		attribute.String("datastructure.kind", string(kind)),
		attribute.String("datastructure.name", name),
		attribute.Bool("datastructure.create", create),
	))
	defer span.End(&err)

	key := d.keys.meta(name)
	for attempt := 1; ; attempt++ {
		entry, rec, err := d.read(ctx, key)
		if err != nil {
			return nil, nil, err
		}

		if rec != nil {
			if rec.Kind != kind {
				return nil, nil, TypeConflictError{Name: name, Existing: rec.Kind, Requested: kind}
			}

			// The queue is being removed, it doesn't exist from the point of view of the caller
			if rec.Queue != nil && rec.Queue.Removing {
				if !create {
					return nil, nil, nil
				}
				if attempt >= maxCreateAttempts {
					return nil, nil, errors.Errorf(`cannot create %s "%s": it is being concurrently removed`, kind, name)
				}
				d.logger.Infof(ctx, `completing removal of the %s "%s"`, kind, name)
				if _, err := d.removalCoordinator().RemoveAll(ctx, name, d.config.RemoveBatchSize); err != nil {
					return nil, nil, err
				}
				continue
			}

			if create && d.config.StrictInitArgs {
				if newRec, err := newRecord(kind, name, initArgs); err == nil && !newRec.sameInitArgs(rec) {
					d.logger.Warnf(ctx, `%s "%s" already exists with different init arguments "%s", the arguments "%s" are ignored`, kind, name, rec.Init, newRec.Init)
				}
			}

			return d.newHandle(kind, name, entry), rec, nil
		}

		if !create {
			return nil, nil, nil
		}

		if attempt > maxCreateAttempts {
			return nil, nil, errors.Errorf(`cannot create %s "%s": it is being concurrently removed`, kind, name)
		}

		newRec, err := newRecord(kind, name, initArgs)
		if err != nil {
			return nil, nil, err
		}
		init(newRec)
		value, err := encodeRecord(newRec)
		if err != nil {
			return nil, nil, err
		}

		created, err := d.store.PutIfAbsent(ctx, key, value)
		if err != nil {
			return nil, nil, err
		}
		if created {
			span.SetAttributes(attribute.Bool("datastructure.created", true))
			d.logger.Debugf(ctx, `created %s "%s"`, kind, name)
		}

		// Re-read the record, the winner's record is used, if the creation has been lost.
	}
}

func (d *DataStructures) remove(ctx context.Context, kind Kind, name string) (bool, error) {
	key := d.keys.meta(name)
	for {
		entry, rec, err := d.read(ctx, key)
		if err != nil || rec == nil {
			return false, err
		}
		if rec.Kind != kind {
			return false, TypeConflictError{Name: name, Existing: rec.Kind, Requested: kind}
		}

		ok, err := d.store.Transact(ctx, store.Txn{}.If(store.VersionIs(key, entry.Version)).Then(store.Delete(key)))
		if err != nil {
			return false, err
		}
		if ok {
			d.logger.Debugf(ctx, `removed %s "%s"`, kind, name)
			return true, nil
		}
	}
}

func (d *DataStructures) read(ctx context.Context, key string) (*store.Entry, *record, error) {
	entry, err := d.store.Get(ctx, key)
	if err != nil || entry == nil {
		return nil, nil, err
	}
	rec, err := decodeRecord(key, entry.Value)
	if err != nil {
		return nil, nil, err
	}
	return entry, rec, nil
}

func (d *DataStructures) removalCoordinator() *RemovalCoordinator {
	return &RemovalCoordinator{d: d}
}
