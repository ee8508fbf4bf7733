package datastructures

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record is the metadata of a data structure, stored under the meta key.
// Exactly one of the state fields is set, according to the Kind.
type record struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	// Init contains encoded init arguments of the creator, it is compared if Config.StrictInitArgs is enabled.
	Init  jsoniter.RawMessage `json:"init,omitempty"`
	Long  *longState          `json:"long,omitempty"`
	Ref   *refState           `json:"ref,omitempty"`
	Latch *latchState         `json:"latch,omitempty"`
	Queue *queueState         `json:"queue,omitempty"`
}

// longState is used by the sequence and the atomic long.
type longState struct {
	Value int64 `json:"value"`
}

// refState is used by the atomic reference and the atomic stamped, values are encoded.
type refState struct {
	Value jsoniter.RawMessage `json:"value"`
	Stamp jsoniter.RawMessage `json:"stamp,omitempty"`
}

type latchState struct {
	Count        int  `json:"count"`
	InitialCount int  `json:"initialCount"`
	AutoDelete   bool `json:"autoDelete"`
}

// queueState contains indexes of the queue, elements are stored in the range [Head, Tail).
type queueState struct {
	Head       int64 `json:"head"`
	Tail       int64 `json:"tail"`
	Capacity   int   `json:"capacity"`
	Collocated bool  `json:"collocated"`
	// Removing is set by the first phase of the queue removal, the queue cannot be used anymore.
	Removing bool `json:"removing,omitempty"`
}

func newRecord(kind Kind, name string, initArgs any) (*record, error) {
	init, err := encodeValue(initArgs)
	if err != nil {
		return nil, err
	}
	return &record{Kind: kind, Name: name, Init: init}, nil
}

func (r *record) validate() error {
	var ok bool
	switch r.Kind {
	case KindSequence, KindAtomicLong:
		ok = r.Long != nil
	case KindAtomicReference, KindAtomicStamped:
		ok = r.Ref != nil
	case KindCountDownLatch:
		ok = r.Latch != nil
	case KindQueue:
		ok = r.Queue != nil
	default:
		return errors.Errorf(`unexpected data structure kind "%s"`, r.Kind)
	}
	if !ok {
		return errors.Errorf(`state of the %s "%s" is missing`, r.Kind, r.Name)
	}
	return nil
}

func (r *record) sameInitArgs(other *record) bool {
	return bytes.Equal(r.Init, other.Init)
}

func encodeRecord(r *record) ([]byte, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return nil, errors.PrefixErrorf(err, `cannot encode %s "%s"`, r.Kind, r.Name)
	}
	return out, nil
}

func decodeRecord(key string, value []byte) (*record, error) {
	r := &record{}
	if err := json.Unmarshal(value, r); err != nil {
		return nil, errors.PrefixErrorf(err, `cannot decode record "%s"`, key)
	}
	if err := r.validate(); err != nil {
		return nil, errors.PrefixErrorf(err, `invalid record "%s"`, key)
	}
	return r, nil
}

// encodeValue encodes a user value, the encoded form is used for equality checks.
func encodeValue(v any) (jsoniter.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.PrefixError(err, "cannot encode value")
	}
	return out, nil
}

func decodeValue[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.PrefixError(err, "cannot decode value")
	}
	return v, nil
}
