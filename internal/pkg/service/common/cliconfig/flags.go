// Package cliconfig maps configuration structures to CLI flags and environment variables.
//
// Each field tagged by the "configKey" tag is mapped to one flag, nested structures are mapped recursively.
// The flag name is the kebab-case form of the key path, for example "dataStructures.removeBatchSize"
// is mapped to the "--data-structures.remove-batch-size" flag and to the "<PREFIX>DATA_STRUCTURES_REMOVE_BATCH_SIZE" ENV.
package cliconfig

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/umisama/go-regexpcache"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// keyAnnotation stores the config key path in the flag annotations.
const keyAnnotation = "configKey"

var durationType = reflect.TypeOf(time.Duration(0))

// GenerateFlags generates flags from the config structure to the FlagSet.
// The config parameter can be a structure or a pointer to a structure.
// Field can optionally have a "configUsage" tag.
// Field value is used as the default value.
func GenerateFlags(config any, fs *pflag.FlagSet) error {
	return flagsFromStruct(config, fs, nil)
}

func flagsFromStruct(config any, fs *pflag.FlagSet, parents []string) error {
	structValue := reflect.ValueOf(config)
	if structValue.Kind() == reflect.Pointer {
		structValue = structValue.Elem()
	}

	if structValue.Kind() != reflect.Struct {
		return errors.Errorf(`type "%s" is not a struct or a pointer to a struct, it cannot be mapped to the FlagSet`, structValue.Type().String())
	}

	structType := structValue.Type()
	for i := range structType.NumField() {
		fieldType := structType.Field(i)
		fieldValue := structValue.Field(i)

		key, found := fieldType.Tag.Lookup("configKey")
		if !found {
			continue
		}

		fieldPath := append(append([]string{}, parents...), key)
		flagName := FlagName(fieldPath)
		usage := fieldType.Tag.Get("configUsage")

		switch {
		case fieldValue.Type() == durationType:
			fs.Duration(flagName, time.Duration(fieldValue.Int()), usage)
		case fieldValue.Kind() == reflect.String:
			fs.String(flagName, fieldValue.String(), usage)
		case fieldValue.Kind() == reflect.Int:
			fs.Int(flagName, int(fieldValue.Int()), usage)
		case fieldValue.Kind() == reflect.Int64:
			fs.Int64(flagName, fieldValue.Int(), usage)
		case fieldValue.Kind() == reflect.Bool:
			fs.Bool(flagName, fieldValue.Bool(), usage)
		case fieldValue.Kind() == reflect.Struct:
			if err := flagsFromStruct(fieldValue.Interface(), fs, fieldPath); err != nil {
				return err
			}
			continue
		default:
			return errors.Errorf(`field "%s" of type "%s" cannot be mapped to a flag`, strings.Join(fieldPath, "."), fieldValue.Type().String())
		}

		if err := fs.SetAnnotation(flagName, keyAnnotation, []string{strings.Join(fieldPath, ".")}); err != nil {
			return err
		}
	}

	return nil
}

// FlagName converts the config key path to the flag name.
func FlagName(path []string) string {
	parts := make([]string, 0, len(path))
	for _, part := range path {
		parts = append(parts, fieldToFlagName(part))
	}
	return strings.Join(parts, ".")
}

// EnvName converts the flag name to the ENV name.
func EnvName(prefix, flagName string) string {
	return prefix + strings.ToUpper(regexpcache.MustCompile(`[-.]+`).ReplaceAllString(flagName, "_"))
}

func fieldToFlagName(fieldName string) string {
	str := regexpcache.MustCompile(`[A-Z]+`).ReplaceAllString(fieldName, "-$0")
	str = regexpcache.MustCompile(`[-.\s]+`).ReplaceAllString(str, "-")
	str = strings.Trim(str, "-")
	str = strings.ToLower(str)
	return str
}
