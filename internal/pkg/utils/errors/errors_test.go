package errors_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func TestMultiError(t *testing.T) {
	t.Parallel()

	errs := errors.NewMultiError()
	assert.NoError(t, errs.ErrorOrNil())

	errs.Append(errors.New("first"))
	assert.Equal(t, "first", errs.ErrorOrNil().Error())

	errs.Append(nil)
	errs.AppendWithPrefixf(errors.New("second"), "batch %d", 2)
	assert.Equal(t, 2, errs.Len())
	assert.Equal(t, "- first\n- batch 2: second", errs.Error())
}

func TestMultiError_Flatten(t *testing.T) {
	t.Parallel()

	inner := errors.NewMultiError()
	inner.Append(errors.New("a"), errors.New("b"))

	outer := errors.NewMultiError()
	outer.Append(inner, errors.New("c"))
	assert.Equal(t, 3, outer.Len())
}

func TestPrefixError(t *testing.T) {
	t.Parallel()

	err := errors.PrefixError(io.EOF, "cannot read")
	assert.Equal(t, "cannot read: EOF", err.Error())
	assert.True(t, errors.Is(err, io.EOF))

	multi := errors.NewMultiError()
	multi.Append(errors.New("a"), errors.New("b"))
	assert.Equal(t, "cannot delete:\n  - a\n  - b", errors.PrefixError(multi, "cannot delete").Error())
}
