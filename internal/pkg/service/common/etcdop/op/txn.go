package op

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// TxnOp provides high-level interface above etcd.Txn.
type TxnOp struct {
	client  etcd.KV
	cmps    []etcd.Cmp
	thenOps []LowLevelOp
}

type TxnResult struct {
	Succeeded bool
}

func Txn(client etcd.KV) *TxnOp {
	return &TxnOp{client: client}
}

// If takes a list of comparison. If all comparisons passed in succeed,
// the operations passed into Then() will be executed.
func (v *TxnOp) If(cs ...etcd.Cmp) *TxnOp {
	v.cmps = append(v.cmps, cs...)
	return v
}

// Then takes a list of operations. The Ops list will be executed, if the
// comparisons passed in If() succeed.
func (v *TxnOp) Then(ops ...LowLevelOp) *TxnOp {
	v.thenOps = append(v.thenOps, ops...)
	return v
}

func (v *TxnOp) Op(ctx context.Context) (etcd.Op, error) {
	errs := errors.NewMultiError()

	thenOps := make([]etcd.Op, 0, len(v.thenOps))
	for i, op := range v.thenOps {
		etcdOp, err := op.Op(ctx)
		if err != nil {
			errs.Append(errors.Errorf("cannot create operation [then][%d]: %w", i, err))
			continue
		}
		thenOps = append(thenOps, etcdOp)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return etcd.Op{}, err
	}

	return etcd.OpTxn(v.cmps, thenOps, nil), nil
}

func (v *TxnOp) Do(ctx context.Context) (TxnResult, error) {
	etcdOp, err := v.Op(ctx)
	if err != nil {
		return TxnResult{}, err
	}

	r, err := v.client.Do(ctx, etcdOp)
	if err != nil {
		return TxnResult{}, err
	}

	return TxnResult{Succeeded: r.Txn().Succeeded}, nil
}
