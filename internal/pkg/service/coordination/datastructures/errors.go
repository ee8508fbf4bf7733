package datastructures

import (
	"fmt"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// ErrNotFound matches errors of operations on a data structure which does not exist anymore.
//
// A miss in the fetch-or-create operation is not an error, nil handle is returned.
var ErrNotFound = errors.New("data structure not found")

// TypeConflictError is returned when the name is already bound to another kind of data structure.
type TypeConflictError struct {
	Name      string
	Existing  Kind
	Requested Kind
}

func (e TypeConflictError) Error() string {
	return fmt.Sprintf(`name "%s" is already used by %s, cannot use it as %s`, e.Name, e.Existing, e.Requested)
}

// QueueFullError is returned by the offer operation if the bounded queue is full.
type QueueFullError struct {
	Name     string
	Capacity int
}

func (e QueueFullError) Error() string {
	return fmt.Sprintf(`queue "%s" is full, capacity is %d`, e.Name, e.Capacity)
}

// StaleHandleError is returned on an operation with the handle of a removed data structure.
// It matches the ErrNotFound.
type StaleHandleError struct {
	Kind Kind
	Name string
}

func (e StaleHandleError) Error() string {
	return fmt.Sprintf(`%s "%s" not found, it has been removed`, e.Kind, e.Name)
}

func (e StaleHandleError) Is(target error) bool {
	return target == ErrNotFound
}

// SequenceOverflowError is returned if the next value of the sequence would exceed the max int64 value.
// No value is issued and the sequence is not modified.
type SequenceOverflowError struct {
	Name  string
	Value int64
	Delta int64
}

func (e SequenceOverflowError) Error() string {
	return fmt.Sprintf(`sequence "%s" overflow: cannot add %d to %d`, e.Name, e.Delta, e.Value)
}
