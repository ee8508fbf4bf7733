// Package config provides configuration of the coordination CLI.
package config

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/keboola/keboola-coordination/internal/pkg/service/common/cliconfig"
	"github.com/keboola/keboola-coordination/internal/pkg/service/common/etcdclient"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
	"github.com/keboola/keboola-coordination/internal/pkg/validator"
)

const (
	EnvPrefix   = "COORDINATION_"
	StoreEtcd   = "etcd"
	StoreMemory = "memory"
)

type Config struct {
	Debug          bool                  `configKey:"debug" configUsage:"Enable debug log level."`
	Store          string                `configKey:"store" configUsage:"Store of data structures: etcd or memory." validate:"required,oneof=etcd memory"`
	Etcd           etcdclient.Config     `configKey:"etcd"`
	DataStructures datastructures.Config `configKey:"dataStructures"`
}

func New() Config {
	return Config{
		Debug:          false,
		Store:          StoreEtcd,
		Etcd:           etcdclient.NewConfig(),
		DataStructures: datastructures.NewConfig(),
	}
}

// Flags generates flags for all configuration fields, default values are taken from the New function.
func Flags(fs *pflag.FlagSet) error {
	return cliconfig.GenerateFlags(New(), fs)
}

// LoadFrom loads configuration from parsed flags and ENVs, see Flags.
func LoadFrom(ctx context.Context, fs *pflag.FlagSet, lookupEnv cliconfig.LookupEnvFn) (Config, error) {
	cfg := Config{}
	if _, err := cliconfig.BindFlagsAndEnvToStruct(&cfg, fs, lookupEnv, EnvPrefix); err != nil {
		return Config{}, err
	}

	cfg.Normalize()
	if err := cfg.Validate(ctx); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) Normalize() {
	if c.Store == StoreEtcd {
		c.Etcd.Normalize()
	}
}

func (c *Config) Validate(ctx context.Context) error {
	errs := errors.NewMultiError()
	if err := validator.New().Validate(ctx, c); err != nil {
		errs.Append(err)
	}
	if c.Store == StoreEtcd {
		if err := c.Etcd.Validate(); err != nil {
			errs.Append(err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return errors.PrefixError(err, "invalid configuration")
	}
	return nil
}
