package etcdlogger

import (
	"strings"

	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
)

type tHelper interface {
	Helper()
}

// Assert compares logged operations, the expected string may contain wildcards, for example "%d".
func Assert(t assert.TestingT, expected, actual string) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return wildcards.Assert(t, strings.TrimSpace(expected), strings.TrimSpace(actual))
}
