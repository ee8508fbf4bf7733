package dependencies_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/config"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/dependencies"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/etcdstore"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/etcdhelper"
)

func TestNewServiceScope_Memory(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	cfg := config.New()
	cfg.Store = config.StoreMemory

	logger := log.NewDebugLogger()
	d, err := dependencies.NewServiceScope(ctx, cfg, logger, nil)
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, d.Store())
	assert.NotNil(t, d.Clock())
	assert.NotNil(t, d.Telemetry())
	assert.NotNil(t, d.DataStructures())
	require.NoError(t, d.Close(ctx))

	logger.AssertJSONMessages(t, `{"level":"info","message":"using in-memory store, data structures are not shared with other processes"}`)
}

func TestNewServiceScope_Etcd(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	testClient := etcdhelper.ClientForTest(t)

	cfg := config.New()
	cfg.Etcd.Endpoint = testClient.Endpoints()[0]
	cfg.Etcd.Namespace = etcdhelper.TmpNamespace()
	cfg.Normalize()

	tel := telemetry.NewForTest(t)
	d, err := dependencies.NewServiceScope(ctx, cfg, log.NewNopLogger(), tel)
	require.NoError(t, err)
	assert.IsType(t, &etcdstore.Store{}, d.Store())
	assert.Contains(t, tel.SpanNames(), "keboola.go.common.dependencies.EtcdClient")

	long, err := d.DataStructures().AtomicLong(ctx, "foo", 1, true)
	require.NoError(t, err)
	v, err := long.IncrementAndGet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, d.Close(ctx))
}

func TestNewServiceScope_InvalidStore(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.Store = "foo"
	_, err := dependencies.NewServiceScope(t.Context(), cfg, log.NewNopLogger(), telemetry.NewNop())
	require.Error(t, err)
	assert.Equal(t, `unexpected store "foo"`, err.Error())
}

func TestNewMocked(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	d := dependencies.NewMocked(t)
	_, err := d.DataStructures().Sequence(ctx, "seq", 0, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/meta/seq"}, d.MemStore().Keys())
	assert.Equal(t, []string{"keboola.go.coordination.datastructures.fetchOrCreate"}, d.TestTelemetry().SpanNames())
}
