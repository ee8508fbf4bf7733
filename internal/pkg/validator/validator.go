// Package validator validates structures by the "validate" tags, see github.com/go-playground/validator.
// Fields in error messages are named by the "configKey" or "json" tag.
package validator

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslation "github.com/go-playground/validator/v10/translations/en"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Register default EN translator
	enLocale := en.New()
	enTranslator, found := ut.New(enLocale, enLocale).GetTranslator("en")
	if !found {
		panic(errors.New("en translator was not found"))
	}
	if err := enTranslation.RegisterDefaultTranslations(validate, enTranslator); err != nil {
		panic(errors.Errorf("translator was not registered: %w", err))
	}

	// Use config key or JSON field name in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("configKey"); name != "" {
			return name
		}
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})

	return &Validator{validate: validate, translator: enTranslator}
}

// Validate the structure, all errors are returned as a MultiError.
func (v *Validator) Validate(ctx context.Context, value any) error {
	err := v.validate.StructCtx(ctx, value)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		result := errors.NewMultiError()
		for _, e := range validationErrs {
			message := strings.TrimPrefix(e.Translate(v.translator), e.Field()+" ")
			result.Append(errors.Errorf(`"%s" %s`, fieldPath(e.Namespace()), message))
		}
		return result.ErrorOrNil()
	}

	return err
}

// fieldPath removes the struct name, the first part of the namespace.
func fieldPath(namespace string) string {
	if _, path, found := strings.Cut(namespace, "."); found {
		return path
	}
	return namespace
}
