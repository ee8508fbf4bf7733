package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/cli"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/config"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/dependencies"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
)

type tester struct {
	t *testing.T
	d dependencies.Mocked
}

// run executes one CLI invocation, all invocations share the same in-memory store.
func (tt *tester) run(args ...string) (string, error) {
	tt.t.Helper()

	var stdout, stderr bytes.Buffer
	lookupEnv := func(key string) (string, bool) {
		if key == "COORDINATION_STORE" {
			return config.StoreMemory, true
		}
		return "", false
	}
	newScope := func(context.Context, config.Config, log.Logger, telemetry.Telemetry) (dependencies.ServiceScope, error) {
		return tt.d, nil
	}

	root, err := cli.NewRootCommand(&stdout, &stderr, lookupEnv, newScope)
	require.NoError(tt.t, err)

	err = root.Execute(tt.t.Context(), args)
	return stdout.String(), err
}

func (tt *tester) assertOutput(expected string, args ...string) {
	tt.t.Helper()
	out, err := tt.run(args...)
	require.NoError(tt.t, err)
	assert.Equal(tt.t, strings.TrimLeft(expected, "\n"), out, strings.Join(args, " "))
}

func newTester(t *testing.T) *tester {
	t.Helper()
	return &tester{t: t, d: dependencies.NewMocked(t)}
}

func TestSequence(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	tt.assertOutput("101\n102\n103\n", "sequence", "next", "seq", "--init", "100", "--count", "3", "--batch-size", "2")
	// A new process reserves a new window
	tt.assertOutput("105\n", "sequence", "next", "seq")

	_, err := tt.run("sequence", "next", "seq", "--count", "0")
	require.Error(t, err)
	assert.Equal(t, "count must be greater than 0, found 0", err.Error())
}

func TestLong(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	_, err := tt.run("long", "get", "counter")
	require.Error(t, err)
	assert.Equal(t, `atomic long "counter" does not exist`, err.Error())

	tt.assertOutput("5\n", "long", "add", "counter", "5")
	tt.assertOutput("3\n", "long", "add", "counter", "-2")
	tt.assertOutput("3\n", "long", "get", "counter")
	tt.assertOutput("false\n", "long", "cas", "counter", "1", "10")
	tt.assertOutput("true\n", "long", "cas", "counter", "3", "10")
	tt.assertOutput("10\n", "long", "get", "counter")

	_, err = tt.run("long", "add", "counter", "abc")
	require.Error(t, err)
	assert.Equal(t, `argument "delta" must be an integer, found "abc"`, err.Error())
}

func TestLatch(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	tt.assertOutput("2\n", "latch", "create", "latch", "2")
	// Count of the existing latch is not modified
	tt.assertOutput("2\n", "latch", "create", "latch", "5")
	tt.assertOutput("false\n", "latch", "await", "latch", "--timeout", "0")
	tt.assertOutput("1\n", "latch", "count-down", "latch")
	tt.assertOutput("0\n", "latch", "count-down", "latch", "-n", "5")
	tt.assertOutput("0\n", "latch", "count", "latch")
	tt.assertOutput("true\n", "latch", "await", "latch", "--timeout", "1s")
}

func TestQueue(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	tt.assertOutput("", "queue", "offer", "q", "a", "b", "c", "--capacity", "5")
	tt.assertOutput("3\n", "queue", "size", "q")
	tt.assertOutput("a\nb\nc\n", "queue", "items", "q")
	tt.assertOutput("a\n", "queue", "peek", "q")
	tt.assertOutput("a\n", "queue", "poll", "q")
	tt.assertOutput("b\n", "queue", "poll", "q", "--wait")

	_, err := tt.run("queue", "offer", "q", "d", "e", "f", "g", "h")
	require.Error(t, err)
	assert.Equal(t, `queue "q" is full, capacity is 5`, err.Error())

	tt.assertOutput("c\nd\ne\nf\ng\n", "queue", "items", "q")
	tt.assertOutput("", "queue", "clear", "q", "--batch-size", "2")
	tt.assertOutput("0\n", "queue", "size", "q")
	tt.assertOutput("", "queue", "poll", "q")
}

func TestRemove(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	tt.assertOutput("", "queue", "offer", "q", "a", "b", "c")
	tt.assertOutput("1\n", "long", "add", "counter", "1")

	tt.assertOutput("true\n", "remove", "queue", "q", "--batch-size", "2")
	tt.assertOutput("false\n", "remove", "queue", "q")
	tt.assertOutput("true\n", "remove", "long", "counter")
	assert.Empty(t, tt.d.MemStore().Keys())

	_, err := tt.run("remove", "foo", "bar")
	require.Error(t, err)
	assert.Equal(t, `unexpected kind "foo", expected one of: sequence, long, latch, queue`, err.Error())
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()
	tt := newTester(t)

	_, err := tt.run("long", "get", "counter", "--store", "foo")
	require.Error(t, err)
	assert.Equal(t, `invalid configuration: "store" must be one of [etcd memory]`, err.Error())
}
