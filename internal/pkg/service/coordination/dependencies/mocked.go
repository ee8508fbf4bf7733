package dependencies

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/config"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
)

// Mocked dependencies container, the in-memory store, the debug logger and the in-memory telemetry are used.
type Mocked interface {
	ServiceScope
	DebugLogger() log.DebugLogger
	TestTelemetry() telemetry.ForTest
	MemStore() *memstore.Store
}

type mocked struct {
	*serviceScope
	debugLogger   log.DebugLogger
	testTelemetry telemetry.ForTest
	memStore      *memstore.Store
}

type MockedOption func(c *mockedConfig)

type mockedConfig struct {
	config    config.Config
	clock     clockwork.Clock
	storeOpts []memstore.Option
}

// WithClock replaces the real clock, for example by a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) MockedOption {
	return func(c *mockedConfig) {
		c.clock = clock
	}
}

func WithDataStructuresConfig(fn func(cfg *datastructures.Config)) MockedOption {
	return func(c *mockedConfig) {
		fn(&c.config.DataStructures)
	}
}

func WithMemStoreOptions(opts ...memstore.Option) MockedOption {
	return func(c *mockedConfig) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

func NewMocked(t *testing.T, opts ...MockedOption) Mocked {
	t.Helper()

	cfg := config.New()
	cfg.Store = config.StoreMemory
	cfg.DataStructures.LatchPollInterval = time.Millisecond
	cfg.DataStructures.LatchMaxPollInterval = 20 * time.Millisecond
	cfg.DataStructures.QueueRetryInterval = time.Millisecond
	cfg.DataStructures.QueueMaxRetryInterval = 20 * time.Millisecond

	c := &mockedConfig{config: cfg, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(c)
	}

	logger := log.NewDebugLogger()
	tel := telemetry.NewForTest(t)
	memStore := memstore.New(c.storeOpts...)

	d := &serviceScope{clock: c.clock, logger: logger, telemetry: tel, store: memStore, closersLock: &sync.Mutex{}}
	var err error
	d.dataStructures, err = datastructures.New(d, c.config.DataStructures)
	require.NoError(t, err)

	return &mocked{serviceScope: d, debugLogger: logger, testTelemetry: tel, memStore: memStore}
}

func (v *mocked) DebugLogger() log.DebugLogger {
	return v.debugLogger
}

func (v *mocked) TestTelemetry() telemetry.ForTest {
	return v.testTelemetry
}

func (v *mocked) MemStore() *memstore.Store {
	return v.memStore
}
