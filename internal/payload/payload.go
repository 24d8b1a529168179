// Package payload defines the request bodies accepted by the API and how they
// are copied onto the stored models.
//
// Create payloads use plain fields. Update payloads use pointer fields so a
// PATCH can tell an omitted field from one explicitly set to its zero value;
// fields whose default is not the zero value declare it with a default tag.
package payload

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	validate = newValidator("validate")

	// replace holds the extra rules a PUT body must satisfy, declared with
	// the replace tag (e.g. replace:"required" on a pointer field).
	replace = newValidator("replace")
)

func newValidator(tag string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tag)
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is a single rejected field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationErrors is returned when a payload fails validation.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Error)
	}
	return strings.Join(parts, "; ")
}

// normalizer is implemented by payloads that clean up their own fields.
type normalizer interface {
	normalize()
}

// Validate checks the shape of v (required fields and lengths). When v is a
// pointer to a payload, its fields are normalized in place first, so the
// value that is validated is the value that gets stored.
func Validate(v any) error {
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	return convert(validate.Struct(v))
}

// ValidateReplace validates an update payload used to replace a record: in
// addition to Validate, every field marked replace:"required" must be set.
func ValidateReplace(v any) error {
	if err := Validate(v); err != nil {
		return err
	}
	return convert(replace.Struct(v))
}

func convert(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fe.Field(), Error: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	kind := fe.Kind()
	if kind == reflect.Pointer {
		kind = fe.Type().Elem().Kind()
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		if kind == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s:%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
