package etcdstore_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/etcdstore"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/storetest"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/etcdhelper"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/etcdlogger"
)

func TestStore(t *testing.T) {
	t.Parallel()

	client := etcdhelper.ClientForTest(t)
	storetest.Run(t, etcdstore.New(client, etcdstore.WithPageSize(2)))
}

func TestStore_KeysLayout(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	client := etcdhelper.ClientForTest(t)
	s := etcdstore.New(client)

	ok, err := s.PutIfAbsent(ctx, "ds/meta/foo", []byte("{}"))
	require.NoError(t, err)
	require.True(t, ok)

	etcdhelper.AssertKeys(t, client, []string{"ds/meta/foo"})
}

func TestStore_Requests(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	var out bytes.Buffer
	client := etcdhelper.ClientForTest(t)
	client.KV = etcdlogger.Wrap(client.KV, &out, etcdlogger.WithValues())
	s := etcdstore.New(client)

	ok, err := s.PutIfAbsent(ctx, "foo", []byte("1"))
	require.NoError(t, err)
	assert.True(t, ok)

	entry, err := s.Get(ctx, "foo")
	require.NoError(t, err)
	require.NotNil(t, entry)

	ok, err = s.Transact(ctx, store.Txn{}.
		If(store.VersionIs("foo", entry.Version), store.NotExists("bar")).
		Then(store.Put("bar", []byte("2")), store.Delete("foo")),
	)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Remove(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)

	etcdlogger.Assert(t, `
TXN | succeeded: true
  IF "foo" VERSION EQUAL 0
  THEN PUT "foo" | value: 1
GET "foo" | count: 1 | loaded: 1
TXN | succeeded: true
  IF "foo" MOD EQUAL %d
  IF "bar" VERSION EQUAL 0
  THEN PUT "bar" | value: 2
  THEN DEL "foo"
DEL "foo" | deleted: 0
`, out.String())
}
