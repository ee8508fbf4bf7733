package iterator

import (
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

const DefaultLimit = 100

type Option func(c *config)

type config struct {
	prefix   string
	pageSize int
	revision int64 // revision of the all values, set by the first page
}

func newConfig(prefix string, opts []Option) config {
	c := config{prefix: prefix, pageSize: DefaultLimit}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func WithPageSize(v int) Option {
	if v < 1 {
		panic(errors.New("page size must be greater than 0"))
	}
	return func(c *config) {
		c.pageSize = v
	}
}
