package errors

import (
	"fmt"
)

// prefixedError adds a context to the wrapped error.
// Errors are composed as "prefix: message", multi errors are composed as a bullet list.
type prefixedError struct {
	prefix string
	err    error
}

func PrefixError(err error, prefix string) error {
	if err == nil {
		panic(New("error cannot be nil"))
	}
	return &prefixedError{prefix: prefix, err: err}
}

func PrefixErrorf(err error, format string, a ...any) error {
	return PrefixError(err, fmt.Sprintf(format, a...))
}

func (e *prefixedError) Error() string {
	if _, ok := e.err.(MultiError); ok { // nolint: errorlint
		return e.prefix + ":\n  " + indentNext(e.err.Error())
	}
	return e.prefix + ": " + e.err.Error()
}

func (e *prefixedError) Unwrap() error {
	return e.err
}
