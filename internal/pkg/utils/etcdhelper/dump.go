package etcdhelper

import (
	"context"
	"strings"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

type KV struct {
	Key   string
	Value string
}

// DumpAll returns all KVs sorted by key.
func DumpAll(ctx context.Context, client etcd.KV) (out []KV, err error) {
	r, err := client.Get(ctx, "", etcd.WithFromKey(), etcd.WithSort(etcd.SortByKey, etcd.SortAscend))
	if err != nil {
		return nil, errors.PrefixError(err, "cannot dump etcd state")
	}
	for _, kv := range r.Kvs {
		out = append(out, KV{Key: string(kv.Key), Value: string(kv.Value)})
	}
	return out, nil
}

// DumpAllKeys returns all keys sorted in ascending order.
func DumpAllKeys(ctx context.Context, client etcd.KV) (out []string, err error) {
	kvs, err := DumpAll(ctx, client)
	if err != nil {
		return nil, err
	}
	for _, kv := range kvs {
		out = append(out, kv.Key)
	}
	return out, nil
}

// DumpAllToString returns all KVs in a human-readable form, it is useful for debugging of a failed test.
func DumpAllToString(ctx context.Context, client etcd.KV) (string, error) {
	kvs, err := DumpAll(ctx, client)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, kv := range kvs {
		out.WriteString("<<<<<\n")
		out.WriteString(kv.Key)
		out.WriteString("\n-----\n")
		out.WriteString(kv.Value)
		out.WriteString("\n>>>>>\n\n")
	}
	return out.String(), nil
}
