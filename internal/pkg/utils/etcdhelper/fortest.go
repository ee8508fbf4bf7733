// Package etcdhelper provides etcd utilities for tests.
package etcdhelper

import (
	"runtime"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	etcd "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/tests/v3/integration"

	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdclient"
)

// ClientForTest starts an embedded single node etcd cluster and returns a client for it.
// The client is prefixed by a unique namespace, the cluster is terminated after the test.
func ClientForTest(t *testing.T) *etcd.Client {
	t.Helper()

	if runtime.GOOS != "linux" {
		t.Skipf(`etcd cluster for test is supported only on Linux`)
	}

	integration.BeforeTestExternal(t)
	cluster := integration.NewClusterV3(t, &integration.ClusterConfig{Size: 1})
	t.Cleanup(func() {
		cluster.Terminate(t)
	})

	client := cluster.Client(0)
	etcdclient.UseNamespace(client, TmpNamespace())
	return client
}

// TmpNamespace returns a unique etcd namespace.
func TmpNamespace() string {
	return "unit-" + strings.ToLower(ulid.Make().String()) + "/"
}
