package cliconfig

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

type KVs []KV

type KV struct {
	Key   string
	Value string
}

func (v KVs) String() string {
	var out strings.Builder
	for i, kv := range v {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(kv.Key)
		out.WriteString("=")
		out.WriteString(kv.Value)
		out.WriteString(";")
	}
	return out.String()
}

// Dump a configuration structure as key-value pairs, keys are flag names.
// Fields with the sensitive:"true" tag are skipped.
func Dump(config any) KVs {
	v := reflect.ValueOf(config)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	out := make(KVs, 0)
	dump(v, nil, &out)
	return out
}

func dump(v reflect.Value, parents []string, out *KVs) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		key, found := t.Field(i).Tag.Lookup("configKey")
		if !found || t.Field(i).Tag.Get("sensitive") == "true" {
			continue
		}

		path := append(append([]string{}, parents...), key)
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			dump(field, path, out)
			continue
		}

		var str string
		switch value := field.Interface().(type) {
		case fmt.Stringer:
			str = value.String()
		case encoding.TextMarshaler:
			if text, err := value.MarshalText(); err == nil {
				str = string(text)
			}
		default:
			str = cast.ToString(value)
		}

		*out = append(*out, KV{Key: FlagName(path), Value: str})
	}
}
