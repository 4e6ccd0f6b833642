/*
Package factory converts loosely typed input (JSON documents, request
bodies) into the engine's domain values.

PURPOSE:
  Everything that arrives from outside is untrusted: a reason posted by a
  form, a legacy reason string, a DTO. The factory checks the shape of the
  input with struct tags (go-playground/validator), then hands the
  converted value to the domain for the semantic checks only the domain
  can make.

  JSON ──decode──▶ *JSON struct ──validate tags──▶ domain value ──Normalize──▶ ok

ERRORS:
  Every failure is a *generic.ValidationError whose Field is the JSON path
  of the offending input (e.g. "reason.compensation.start_time").

SEE ALSO:
  - reason.go: reason documents
  - api/dto.go: request bodies validated with the same Validator
*/
package factory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/warp/leave-engine/generic"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator. Field names in its errors are the
// json tag names.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(validate, "clock", func(fl validator.FieldLevel) bool {
			_, err := generic.ParseClockTime(fl.Field().String())
			return err == nil
		})
		mustRegister(validate, "date", func(fl validator.FieldLevel) bool {
			_, err := generic.ParseDate(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// mustRegister panics when tag cannot be registered.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("factory: register %q validation: %v", tag, err))
	}
}

// Validate checks v against its struct tags. prefix is prepended to the
// reported field path.
func Validate(v any, prefix string) error {
	return ValidationError(Validator().Struct(v), prefix)
}

// ValidationError maps a validator error to a *generic.ValidationError
// describing the first failing field. Other errors pass through.
func ValidationError(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	e := errs[0]
	// Namespace is "Struct.field.sub"; drop the root struct name.
	path := e.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	if prefix != "" {
		path = prefix + "." + path
	}

	switch e.Tag() {
	case "required":
		return generic.Invalid(path, "is required")
	case "oneof":
		return generic.Invalid(path, "must be one of [%s]", e.Param())
	case "min":
		return generic.Invalid(path, "must be at least %s%s", e.Param(), unit(e.Kind()))
	case "max":
		return generic.Invalid(path, "must be at most %s%s", e.Param(), unit(e.Kind()))
	case "clock":
		return generic.Invalid(path, "must be a time as HH:MM")
	case "date":
		return generic.Invalid(path, "must be a date as YYYY-MM-DD")
	default:
		return generic.Invalid(path, "failed %q validation", e.Tag())
	}
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}
