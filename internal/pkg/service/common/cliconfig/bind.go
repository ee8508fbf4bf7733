package cliconfig

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// SetBy describes the source of a configuration value.
type SetBy int

const (
	SetByFlagDefault SetBy = iota
	SetByEnv
	SetByFlag
)

// LookupEnvFn returns the ENV value, for example os.LookupEnv.
type LookupEnvFn func(key string) (string, bool)

// BindFlagsAndEnvToStruct binds flags generated by GenerateFlags and ENVs to the target structure.
// A flag has higher priority than an ENV, the default value of the flag has the lowest priority.
func BindFlagsAndEnvToStruct(target any, fs *pflag.FlagSet, lookupEnv LookupEnvFn, envPrefix string) (map[string]SetBy, error) {
	v := viper.New()
	setBy := BindFlagsAndEnvToViper(v, fs, lookupEnv, envPrefix)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "configKey",
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, errors.PrefixError(err, "cannot decode configuration")
	}

	return setBy, nil
}

// BindFlagsAndEnvToViper sets values of flags and ENVs to the Viper configuration registry.
// Keys are config key paths.
func BindFlagsAndEnvToViper(v *viper.Viper, fs *pflag.FlagSet, lookupEnv LookupEnvFn, envPrefix string) map[string]SetBy {
	setBy := make(map[string]SetBy)
	fs.VisitAll(func(flag *pflag.Flag) {
		keys := flag.Annotations[keyAnnotation]
		if len(keys) != 1 {
			// Flag is not mapped to a config field, for example "--help"
			return
		}
		key := keys[0]

		envName := EnvName(envPrefix, flag.Name)
		envValue, envFound := lookupEnv(envName)
		switch {
		case flag.Changed:
			setBy[key] = SetByFlag
			v.Set(key, flag.Value.String())
		case envFound:
			setBy[key] = SetByEnv
			v.Set(key, envValue)
		default:
			setBy[key] = SetByFlagDefault
			v.Set(key, flag.DefValue)
		}
	})
	return setBy
}
