package cli

import (
	"github.com/ccoveille/go-safecast"
	"github.com/spf13/cast"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func notFoundError(kind datastructures.Kind, name string) error {
	return errors.Errorf(`%s "%s" does not exist`, kind, name)
}

func parseInt64(argName, value string) (int64, error) {
	v, err := cast.ToInt64E(value)
	if err != nil {
		return 0, errors.Errorf(`argument "%s" must be an integer, found "%s"`, argName, value)
	}
	return v, nil
}

func parseInt(argName, value string) (int, error) {
	v, err := parseInt64(argName, value)
	if err != nil {
		return 0, err
	}
	out, err := safecast.ToInt(v)
	if err != nil {
		return 0, errors.PrefixErrorf(err, `argument "%s" is out of range`, argName)
	}
	return out, nil
}
