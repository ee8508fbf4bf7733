package datastructures

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
)

// RemovalCoordinator removes a queue with all its elements.
//
// The removal has three phases:
//  1. The queue is marked as removing, existing handles stop working.
//  2. Elements are deleted in batches, each batch is one transaction.
//  3. The metadata record is deleted.
//
// If the removal is interrupted, it can be invoked again, it continues where it ended.
type RemovalCoordinator struct {
	d *DataStructures
}

// RemoveAll removes the queue, elements are deleted in transactions of at most batchSize keys.
// Zero batch size means all elements in one transaction, it fails if the store.Store MaxTxnOps limit is exceeded.
func (c *RemovalCoordinator) RemoveAll(ctx context.Context, name string, batchSize int) (removed bool, err error) {
	ctx, span := c.d.telemetry.Tracer().Start(ctx, "keboola.go.coordination.datastructures.RemoveAll", trace.WithAttributes(
		attribute.String("datastructure.kind", string(KindQueue)),
		attribute.String("datastructure.name", name),
		attribute.Int("batch.size", batchSize),
	))
	defer span.End(&err)

	startTime := c.d.clock.Now()
	key := c.d.keys.meta(name)

	// Mark the queue as removing
	var rec *record
	for {
		entry, current, err := c.d.read(ctx, key)
		if err != nil || current == nil {
			return false, err
		}
		if current.Kind != KindQueue {
			return false, TypeConflictError{Name: name, Existing: current.Kind, Requested: KindQueue}
		}

		rec = current
		if rec.Queue.Removing {
			break
		}

		rec.Queue.Removing = true
		value, err := encodeRecord(rec)
		if err != nil {
			return false, err
		}
		ok, err := c.d.store.CompareAndSwap(ctx, key, entry.Version, value)
		if err != nil {
			return false, err
		}
		if ok {
			break
		}
	}

	// Delete elements
	elements, err := c.d.scanElements(ctx, name, rec.Queue.Collocated)
	if err != nil {
		return false, err
	}
	if batchSize <= 0 {
		batchSize = max(1, len(elements))
	}
	for batch := range slices.Chunk(elements, batchSize) {
		txn := store.Txn{}
		for _, elem := range batch {
			txn = txn.Then(store.Delete(elem.entry.Key))
		}
		if _, err := c.d.store.Transact(ctx, txn); err != nil {
			return false, err
		}
	}

	// Delete the metadata, if it has not been deleted and re-created concurrently
	entry, current, err := c.d.read(ctx, key)
	if err != nil {
		return false, err
	}
	if current != nil && current.Queue != nil && current.Queue.Removing {
		if _, err := c.d.store.Transact(ctx, store.Txn{}.If(store.VersionIs(key, entry.Version)).Then(store.Delete(key))); err != nil {
			return false, err
		}
	}

	span.SetAttributes(attribute.Int("elements.deleted", len(elements)))
	c.d.metrics.removedElements.Add(ctx, int64(len(elements)))
	c.d.metrics.removalDuration.Record(ctx, float64(c.d.clock.Since(startTime).Milliseconds()), metric.WithAttributes(attribute.Bool("collocated", rec.Queue.Collocated)))
	c.d.logger.Debugf(ctx, `removed queue "%s", deleted %d elements`, name, len(elements))
	return true, nil
}
