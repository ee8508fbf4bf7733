package datastructures

import (
	"context"
	"math"
	"sync"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// Sequence issues globally unique values, strictly increasing within the handle.
//
// The handle reserves a window of values by one compare-and-swap of the shared counter,
// following values are issued locally without a round trip to the store.
// Values of a window not issued before the handle is dropped are skipped, so the sequence may have gaps.
type Sequence struct {
	*handle
	lock      *sync.Mutex
	batchSize int
	// local is the last issued value, values in the window (local, high] are reserved for the handle.
	local int64
	high  int64
}

func newSequence(h *handle, rec *record, batchSize int) *Sequence {
	return &Sequence{
		handle:    h,
		lock:      &sync.Mutex{},
		batchSize: batchSize,
		local:     rec.Long.Value,
		high:      rec.Long.Value,
	}
}

// Get returns the last value issued by the handle, or the counter value at the time the handle was created.
func (s *Sequence) Get() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.local
}

func (s *Sequence) BatchSize() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.batchSize
}

// SetBatchSize changes count of values reserved at once, the current window is not affected.
func (s *Sequence) SetBatchSize(v int) error {
	if v < 1 {
		return errors.Errorf(`batch size must be greater than 0, found %d`, v)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.batchSize = v
	return nil
}

func (s *Sequence) IncrementAndGet(ctx context.Context) (int64, error) {
	return s.AddAndGet(ctx, 1)
}

// GetAndIncrement returns the value preceding the issued one.
func (s *Sequence) GetAndIncrement(ctx context.Context) (int64, error) {
	return s.GetAndAdd(ctx, 1)
}

// AddAndGet issues the value n steps after the last issued value.
// The n-1 values in between are skipped.
// The SequenceOverflowError is returned if the value would exceed the max int64 value.
func (s *Sequence) AddAndGet(ctx context.Context, n int64) (int64, error) {
	if n < 1 {
		return 0, errors.Errorf(`sequence "%s" can be increased only by a positive number, found %d`, s.name, n)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if n > room(s.local) {
		return 0, SequenceOverflowError{Name: s.name, Value: s.local, Delta: n}
	}

	if s.local+n > s.high {
		if err := s.reserve(ctx, n); err != nil {
			return 0, err
		}
	}

	s.local += n
	return s.local, nil
}

// GetAndAdd returns the value preceding the issued one, see AddAndGet.
func (s *Sequence) GetAndAdd(ctx context.Context, n int64) (int64, error) {
	v, err := s.AddAndGet(ctx, n)
	if err != nil {
		return 0, err
	}
	return v - n, nil
}

// reserve moves the shared counter by max(n, batchSize) and sets the local window to the won range.
// The window is shortened, if the counter is close to the max int64 value.
func (s *Sequence) reserve(ctx context.Context, n int64) error {
	var start, size int64
	_, _, err := s.update(ctx, func(rec *record) (bool, error) {
		start = rec.Long.Value
		available := room(start)
		if n > available {
			return false, SequenceOverflowError{Name: s.name, Value: start, Delta: n}
		}
		size = min(max(n, int64(s.batchSize)), available)
		rec.Long.Value = start + size
		return true, nil
	})
	if err != nil {
		return err
	}

	s.local = start
	s.high = start + size
	s.logger.Debugf(ctx, `reserved values (%d, %d] of the sequence "%s"`, s.local, s.high, s.name)
	return nil
}

// room returns how much can be added to the value without an overflow.
func room(v int64) int64 {
	if v <= 0 {
		return math.MaxInt64
	}
	return math.MaxInt64 - v
}
