// Package etcdlogger wraps etcd.KV and writes each operation to a writer.
// It is used in tests to check which requests a component sends to etcd.
package etcdlogger

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.etcd.io/etcd/api/v3/etcdserverpb"
	etcd "go.etcd.io/etcd/client/v3"
)

type KV struct {
	etcd.KV
	lock   *sync.Mutex
	out    io.Writer
	values bool
}

type txn struct {
	etcd.Txn
	kv      *KV
	ifOps   []etcd.Cmp
	thenOps []etcd.Op
	elseOps []etcd.Op
}

type Option func(kv *KV)

// WithValues enables logging of put values.
func WithValues() Option {
	return func(kv *KV) {
		kv.values = true
	}
}

func Wrap(kv etcd.KV, out io.Writer, opts ...Option) *KV {
	w := &KV{KV: kv, lock: &sync.Mutex{}, out: out}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (v *KV) Put(ctx context.Context, key, val string, opts ...etcd.OpOption) (*etcd.PutResponse, error) {
	r, err := v.Do(ctx, etcd.OpPut(key, val, opts...))
	return r.Put(), err
}

func (v *KV) Get(ctx context.Context, key string, opts ...etcd.OpOption) (*etcd.GetResponse, error) {
	r, err := v.Do(ctx, etcd.OpGet(key, opts...))
	return r.Get(), err
}

func (v *KV) Delete(ctx context.Context, key string, opts ...etcd.OpOption) (*etcd.DeleteResponse, error) {
	r, err := v.Do(ctx, etcd.OpDelete(key, opts...))
	return r.Del(), err
}

func (v *KV) Do(ctx context.Context, op etcd.Op) (etcd.OpResponse, error) {
	r, err := v.KV.Do(ctx, op)
	v.write(op, r, err)
	return r, err
}

func (v *KV) Txn(ctx context.Context) etcd.Txn {
	return &txn{Txn: v.KV.Txn(ctx), kv: v}
}

func (v *txn) If(cs ...etcd.Cmp) etcd.Txn {
	v.Txn.If(cs...)
	v.ifOps = append(v.ifOps, cs...)
	return v
}

func (v *txn) Then(ops ...etcd.Op) etcd.Txn {
	v.Txn.Then(ops...)
	v.thenOps = append(v.thenOps, ops...)
	return v
}

func (v *txn) Else(ops ...etcd.Op) etcd.Txn {
	v.Txn.Else(ops...)
	v.elseOps = append(v.elseOps, ops...)
	return v
}

func (v *txn) Commit() (*etcd.TxnResponse, error) {
	r, err := v.Txn.Commit()
	var resp etcd.OpResponse
	if r != nil {
		resp = r.OpResponse()
	}
	v.kv.write(etcd.OpTxn(v.ifOps, v.thenOps, v.elseOps), resp, err)
	return r, err
}

// write logs the operation and its result, for example:
//
//	TXN | succeeded: true
//	  IF "foo" MOD EQUAL 5
//	  THEN PUT "foo"
func (v *KV) write(op etcd.Op, r etcd.OpResponse, err error) {
	var out strings.Builder
	out.WriteString(v.opToStr(op))

	switch {
	case err != nil:
		out.WriteString(" | error: ")
		out.WriteString(err.Error())
	case r.Get() != nil:
		_, _ = fmt.Fprintf(&out, " | count: %d | loaded: %d", r.Get().Count, len(r.Get().Kvs))
	case r.Del() != nil:
		_, _ = fmt.Fprintf(&out, " | deleted: %d", r.Del().Deleted)
	case r.Txn() != nil:
		_, _ = fmt.Fprintf(&out, " | succeeded: %t", r.Txn().Succeeded)
	}
	out.WriteString("\n")

	if op.IsTxn() {
		cmps, thenOps, elseOps := op.Txn()
		for _, c := range cmps {
			_, _ = fmt.Fprintf(&out, "  IF %s %s %s %s\n", keyToStr(c.Key, c.RangeEnd), c.Target, c.Result, cmpValue(c))
		}
		for _, item := range thenOps {
			_, _ = fmt.Fprintf(&out, "  THEN %s\n", v.opToStr(item))
		}
		for _, item := range elseOps {
			_, _ = fmt.Fprintf(&out, "  ELSE %s\n", v.opToStr(item))
		}
	}

	v.lock.Lock()
	defer v.lock.Unlock()
	_, _ = io.WriteString(v.out, out.String())
}

func (v *KV) opToStr(op etcd.Op) string {
	key := keyToStr(op.KeyBytes(), op.RangeBytes())
	switch {
	case op.IsGet():
		return "GET " + key
	case op.IsPut() && v.values:
		return fmt.Sprintf("PUT %s | value: %s", key, op.ValueBytes())
	case op.IsPut():
		return "PUT " + key
	case op.IsDelete():
		return "DEL " + key
	case op.IsTxn():
		return "TXN"
	default:
		return "n/a"
	}
}

func cmpValue(c etcd.Cmp) string {
	switch v := c.TargetUnion.(type) {
	case *etcdserverpb.Compare_Version:
		return fmt.Sprint(v.Version)
	case *etcdserverpb.Compare_CreateRevision:
		return fmt.Sprint(v.CreateRevision)
	case *etcdserverpb.Compare_ModRevision:
		return fmt.Sprint(v.ModRevision)
	case *etcdserverpb.Compare_Value:
		return fmt.Sprintf(`"%s"`, v.Value)
	case *etcdserverpb.Compare_Lease:
		return fmt.Sprint(v.Lease)
	default:
		return fmt.Sprintf("%T", c.TargetUnion)
	}
}

func keyToStr(key, end []byte) string {
	if len(end) > 0 {
		return fmt.Sprintf(`["%s", "%s")`, key, end)
	}
	return fmt.Sprintf(`"%s"`, key)
}
