package datastructures

import (
	"bytes"
	"context"
)

// AtomicStamped is a cluster-wide pair of a value and a stamp, they are always modified together.
// Values and stamps are compared by their encoded form.
type AtomicStamped[T, S any] struct {
	*handle
}

// Get returns the value and the stamp read at once.
func (v *AtomicStamped[T, S]) Get(ctx context.Context) (value T, stamp S, err error) {
	_, rec, err := v.load(ctx)
	if err != nil {
		return value, stamp, err
	}
	if value, err = decodeValue[T](rec.Ref.Value); err != nil {
		return value, stamp, err
	}
	if stamp, err = decodeValue[S](rec.Ref.Stamp); err != nil {
		return value, stamp, err
	}
	return value, stamp, nil
}

func (v *AtomicStamped[T, S]) Value(ctx context.Context) (T, error) {
	value, _, err := v.Get(ctx)
	return value, err
}

func (v *AtomicStamped[T, S]) Stamp(ctx context.Context) (S, error) {
	_, stamp, err := v.Get(ctx)
	return stamp, err
}

func (v *AtomicStamped[T, S]) Set(ctx context.Context, value T, stamp S) error {
	newState, err := v.encode(value, stamp)
	if err != nil {
		return err
	}
	_, _, err = v.update(ctx, func(rec *record) (bool, error) {
		rec.Ref = newState
		return true, nil
	})
	return err
}

// CompareAndSet sets the value and the stamp only if both the current value and the current stamp are equal to the expected ones.
func (v *AtomicStamped[T, S]) CompareAndSet(ctx context.Context, expectedValue, newValue T, expectedStamp, newStamp S) (bool, error) {
	expected, err := v.encode(expectedValue, expectedStamp)
	if err != nil {
		return false, err
	}
	newState, err := v.encode(newValue, newStamp)
	if err != nil {
		return false, err
	}

	_, written, err := v.update(ctx, func(rec *record) (bool, error) {
		if !bytes.Equal(rec.Ref.Value, expected.Value) || !bytes.Equal(rec.Ref.Stamp, expected.Stamp) {
			return false, nil
		}
		rec.Ref = newState
		return true, nil
	})
	return written, err
}

func (v *AtomicStamped[T, S]) encode(value T, stamp S) (*refState, error) {
	encodedValue, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	encodedStamp, err := encodeValue(stamp)
	if err != nil {
		return nil, err
	}
	return &refState{Value: encodedValue, Stamp: encodedStamp}, nil
}
