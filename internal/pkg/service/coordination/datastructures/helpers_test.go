package datastructures_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
)

type testDependencies struct {
	clock     clockwork.Clock
	logger    log.DebugLogger
	telemetry telemetry.ForTest
	store     store.Store
}

// newTestDependencies creates dependencies with a real clock, a nil store means a new in-memory store.
func newTestDependencies(t *testing.T, s store.Store) *testDependencies {
	t.Helper()
	if s == nil {
		s = memstore.New()
	}
	return &testDependencies{
		clock:     clockwork.NewRealClock(),
		logger:    log.NewDebugLogger(),
		telemetry: telemetry.NewForTest(t),
		store:     s,
	}
}

func (d *testDependencies) Clock() clockwork.Clock {
	return d.clock
}

func (d *testDependencies) Logger() log.Logger {
	return d.logger
}

func (d *testDependencies) Telemetry() telemetry.Telemetry {
	return d.telemetry
}

func (d *testDependencies) Store() store.Store {
	return d.store
}

func testConfig() datastructures.Config {
	cfg := datastructures.NewConfig()
	cfg.LatchPollInterval = time.Millisecond
	cfg.LatchMaxPollInterval = 20 * time.Millisecond
	cfg.QueueRetryInterval = time.Millisecond
	cfg.QueueMaxRetryInterval = 20 * time.Millisecond
	return cfg
}

// newForTest creates DataStructures on top of the store, a nil store means a new in-memory store.
func newForTest(t *testing.T, s store.Store, modifyConfig ...func(cfg *datastructures.Config)) (*datastructures.DataStructures, log.DebugLogger) {
	t.Helper()
	deps := newTestDependencies(t, s)
	return newForTestDeps(t, deps, modifyConfig...), deps.logger
}

func newForTestDeps(t *testing.T, deps *testDependencies, modifyConfig ...func(cfg *datastructures.Config)) *datastructures.DataStructures {
	t.Helper()

	cfg := testConfig()
	for _, fn := range modifyConfig {
		fn(&cfg)
	}

	d, err := datastructures.New(deps, cfg)
	require.NoError(t, err)
	return d
}

// newForTestWithFakeClock creates DataStructures with a fake clock, waiting is driven by the test.
func newForTestWithFakeClock(t *testing.T) (*datastructures.DataStructures, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClock()
	deps := newTestDependencies(t, nil)
	deps.clock = clk
	return newForTestDeps(t, deps), clk
}

// receiveAdvancing moves the fake clock forward by the step until a value is received from the channel.
func receiveAdvancing[T any](t *testing.T, clk *clockwork.FakeClock, step time.Duration, ch <-chan T) (out T) {
	t.Helper()
	require.Eventually(t, func() bool {
		select {
		case out = <-ch:
			return true
		default:
			clk.Advance(step)
			return false
		}
	}, 5*time.Second, time.Millisecond)
	return out
}
