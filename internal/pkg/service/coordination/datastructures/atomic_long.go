package datastructures

import (
	"context"
)

// AtomicLong is a cluster-wide int64 value, all modifications are compare-and-swap loops.
type AtomicLong struct {
	*handle
}

func (v *AtomicLong) Get(ctx context.Context) (int64, error) {
	_, rec, err := v.load(ctx)
	if err != nil {
		return 0, err
	}
	return rec.Long.Value, nil
}

func (v *AtomicLong) IncrementAndGet(ctx context.Context) (int64, error) {
	return v.AddAndGet(ctx, 1)
}

func (v *AtomicLong) DecrementAndGet(ctx context.Context) (int64, error) {
	return v.AddAndGet(ctx, -1)
}

func (v *AtomicLong) GetAndIncrement(ctx context.Context) (int64, error) {
	return v.GetAndAdd(ctx, 1)
}

func (v *AtomicLong) GetAndDecrement(ctx context.Context) (int64, error) {
	return v.GetAndAdd(ctx, -1)
}

func (v *AtomicLong) AddAndGet(ctx context.Context, delta int64) (int64, error) {
	_, newValue, err := v.modify(ctx, func(old int64) int64 { return old + delta })
	return newValue, err
}

func (v *AtomicLong) GetAndAdd(ctx context.Context, delta int64) (int64, error) {
	oldValue, _, err := v.modify(ctx, func(old int64) int64 { return old + delta })
	return oldValue, err
}

func (v *AtomicLong) GetAndSet(ctx context.Context, value int64) (int64, error) {
	oldValue, _, err := v.modify(ctx, func(int64) int64 { return value })
	return oldValue, err
}

// CompareAndSet sets the value only if the current value is equal to the expected value.
func (v *AtomicLong) CompareAndSet(ctx context.Context, expected, value int64) (bool, error) {
	_, written, err := v.update(ctx, func(rec *record) (bool, error) {
		if rec.Long.Value != expected {
			return false, nil
		}
		rec.Long.Value = value
		return true, nil
	})
	return written, err
}

func (v *AtomicLong) modify(ctx context.Context, fn func(old int64) int64) (oldValue, newValue int64, err error) {
	_, _, err = v.update(ctx, func(rec *record) (bool, error) {
		oldValue = rec.Long.Value
		newValue = fn(oldValue)
		rec.Long.Value = newValue
		return true, nil
	})
	if err != nil {
		return 0, 0, err
	}
	return oldValue, newValue, nil
}
