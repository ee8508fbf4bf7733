package datastructures

// Kind of data structure, the name of a data structure is bound to exactly one kind.
type Kind string

const (
	KindSequence        Kind = "sequence"
	KindAtomicLong      Kind = "atomicLong"
	KindAtomicReference Kind = "atomicReference"
	KindAtomicStamped   Kind = "atomicStamped"
	KindCountDownLatch  Kind = "countDownLatch"
	KindQueue           Kind = "queue"
)

// String returns a human-readable form, it is used in errors and logs.
func (v Kind) String() string {
	switch v {
	case KindSequence:
		return "sequence"
	case KindAtomicLong:
		return "atomic long"
	case KindAtomicReference:
		return "atomic reference"
	case KindAtomicStamped:
		return "atomic stamped"
	case KindCountDownLatch:
		return "count down latch"
	case KindQueue:
		return "queue"
	default:
		return string(v)
	}
}
