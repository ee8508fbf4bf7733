package etcdop

import (
	"context"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// WaitForChange blocks until the key is modified or deleted after the afterRevision.
// If the revision is already compacted, the change is reported immediately, the caller should re-read the key.
func (v Key) WaitForChange(ctx context.Context, watcher etcd.Watcher, afterRevision int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := watcher.Watch(etcd.WithRequireLeader(ctx), v.Key(), etcd.WithRev(afterRevision+1))
	for resp := range ch {
		if resp.CompactRevision > 0 {
			return nil
		}
		if err := resp.Err(); err != nil {
			return errors.PrefixErrorf(err, `etcd watch "%s" failed`, v.Key())
		}
		if len(resp.Events) > 0 {
			return nil
		}
	}

	// The channel is closed when the context is done
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Errorf(`etcd watch "%s" closed unexpectedly`, v.Key())
}
