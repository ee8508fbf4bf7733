// Package dependencies provides the dependency container of the coordination service.
//
// The ServiceScope provides the clock, the logger, the telemetry, the store
// and the DataStructures facade on top of the store.
// The store is selected by the configuration: etcd for a cluster, memory for a single process.
//
// Tests use the Mocked container, see NewMocked.
package dependencies

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdclient"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/config"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/etcdstore"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/store/memstore"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

type BaseScope interface {
	Clock() clockwork.Clock
	Logger() log.Logger
	Telemetry() telemetry.Telemetry
}

type ServiceScope interface {
	BaseScope
	Store() store.Store
	DataStructures() *datastructures.DataStructures
	// Close releases resources, for example the etcd client.
	Close(ctx context.Context) error
}

// serviceScope implements ServiceScope interface.
type serviceScope struct {
	clock          clockwork.Clock
	logger         log.Logger
	telemetry      telemetry.Telemetry
	store          store.Store
	dataStructures *datastructures.DataStructures
	closersLock    *sync.Mutex
	closers        []func(ctx context.Context) error
}

// NewServiceScope creates the service scope, a nil telemetry means no operation telemetry.
func NewServiceScope(ctx context.Context, cfg config.Config, logger log.Logger, tel telemetry.Telemetry) (ServiceScope, error) {
	if tel == nil {
		tel = telemetry.NewNop()
	}

	d := &serviceScope{clock: clockwork.NewRealClock(), logger: logger, telemetry: tel, closersLock: &sync.Mutex{}}

	switch cfg.Store {
	case config.StoreEtcd:
		client, err := etcdclient.New(ctx, logger, tel, cfg.Etcd)
		if err != nil {
			return nil, err
		}
		d.onClose(func(context.Context) error {
			return client.Close()
		})
		d.store = etcdstore.New(client)
	case config.StoreMemory:
		logger.Info(ctx, "using in-memory store, data structures are not shared with other processes")
		d.store = memstore.New()
	default:
		return nil, errors.Errorf(`unexpected store "%s"`, cfg.Store)
	}

	var err error
	if d.dataStructures, err = datastructures.New(d, cfg.DataStructures); err != nil {
		return nil, err
	}

	return d, nil
}

func (v *serviceScope) Clock() clockwork.Clock {
	return v.clock
}

func (v *serviceScope) Logger() log.Logger {
	return v.logger
}

func (v *serviceScope) Telemetry() telemetry.Telemetry {
	return v.telemetry
}

func (v *serviceScope) Store() store.Store {
	return v.store
}

func (v *serviceScope) DataStructures() *datastructures.DataStructures {
	return v.dataStructures
}

func (v *serviceScope) Close(ctx context.Context) error {
	v.closersLock.Lock()
	defer v.closersLock.Unlock()

	errs := errors.NewMultiError()
	// Close in the reverse order
	for i := len(v.closers) - 1; i >= 0; i-- {
		if err := v.closers[i](ctx); err != nil {
			errs.Append(err)
		}
	}
	v.closers = nil
	return errs.ErrorOrNil()
}

func (v *serviceScope) onClose(fn func(ctx context.Context) error) {
	v.closersLock.Lock()
	defer v.closersLock.Unlock()
	v.closers = append(v.closers, fn)
}
