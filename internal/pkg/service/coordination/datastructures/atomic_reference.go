package datastructures

import (
	"bytes"
	"context"
)

// AtomicReference is a cluster-wide value of the type T.
// Values are compared by their encoded form, so two values are equal if they are encoded to the same JSON.
type AtomicReference[T any] struct {
	*handle
}

func (v *AtomicReference[T]) Get(ctx context.Context) (T, error) {
	_, rec, err := v.load(ctx)
	if err != nil {
		var empty T
		return empty, err
	}
	return decodeValue[T](rec.Ref.Value)
}

func (v *AtomicReference[T]) Set(ctx context.Context, value T) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	_, _, err = v.update(ctx, func(rec *record) (bool, error) {
		rec.Ref.Value = encoded
		return true, nil
	})
	return err
}

// CompareAndSet sets the value only if the current value is equal to the expected value.
func (v *AtomicReference[T]) CompareAndSet(ctx context.Context, expected, value T) (bool, error) {
	expectedEncoded, err := encodeValue(expected)
	if err != nil {
		return false, err
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return false, err
	}

	// The loop is retried, if the record has been modified, but the value still matches
	_, written, err := v.update(ctx, func(rec *record) (bool, error) {
		if !bytes.Equal(rec.Ref.Value, expectedEncoded) {
			return false, nil
		}
		rec.Ref.Value = encoded
		return true, nil
	})
	return written, err
}
