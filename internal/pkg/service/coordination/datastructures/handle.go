package datastructures

import (
	"context"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
)

// handle is the common part of all data structures.
// It remembers the creation version of the record, so a removed and re-created record is detected.
type handle struct {
	d             *DataStructures
	logger        log.Logger
	kind          Kind
	name          string
	key           string
	createVersion int64
}

func (d *DataStructures) newHandle(kind Kind, name string, entry *store.Entry) *handle {
	return &handle{
		d:             d,
		logger:        d.logger.WithComponent(string(kind)),
		kind:          kind,
		name:          name,
		key:           entry.Key,
		createVersion: entry.CreateVersion,
	}
}

func (h *handle) Name() string {
	return h.name
}

func (h *handle) staleError() error {
	return StaleHandleError{Kind: h.kind, Name: h.name}
}

// load reads the record, the StaleHandleError is returned if the record has been removed or re-created.
func (h *handle) load(ctx context.Context) (*store.Entry, *record, error) {
	entry, rec, err := h.d.read(ctx, h.key)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil || entry.CreateVersion != h.createVersion || rec.Kind != h.kind {
		return nil, nil, h.staleError()
	}
	if rec.Queue != nil && rec.Queue.Removing {
		return nil, nil, h.staleError()
	}
	return entry, rec, nil
}

// update modifies the record in a compare-and-swap loop.
// The loop is retried only on a conflict. If the modify callback returns false, nothing is written.
func (h *handle) update(ctx context.Context, modify func(rec *record) (bool, error)) (*record, bool, error) {
	for {
		entry, rec, err := h.load(ctx)
		if err != nil {
			return nil, false, err
		}

		if write, err := modify(rec); err != nil || !write {
			return rec, false, err
		}

		value, err := encodeRecord(rec)
		if err != nil {
			return nil, false, err
		}

		ok, err := h.d.store.CompareAndSwap(ctx, h.key, entry.Version, value)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rec, true, nil
		}
	}
}
