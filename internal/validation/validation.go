// Package validation checks form structs before they reach the network and
// carries field-keyed errors for inline display.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// FieldErrors maps a form field to its first error message.
type FieldErrors map[string]string

// Error is returned when a form fails validation, locally or on the server.
type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fields extracts field errors from err, or nil when err is not a validation error.
func Fields(err error) FieldErrors {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// Struct validates s and returns *Error when any field is invalid.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		fields[field] = message(field, fe.Tag(), fe.Param())
	}
	return &Error{Fields: fields}
}

func message(field, tag, param string) string {
	switch tag {
	case "required", "required_without":
		return field + " is required"
	case "min":
		return field + " must be at least " + param + " characters"
	case "max":
		return field + " must be at most " + param + " characters"
	case "email":
		return field + " must be a valid email"
	case "len":
		return field + " must be exactly " + param + " characters"
	case "numeric":
		return field + " must contain digits only"
	case "oneof":
		return field + " must be one of " + param
	case "url":
		return field + " must be a valid URL"
	case "gtefield":
		return field + " must not be before " + strings.ToLower(param)
	default:
		return field + " is invalid"
	}
}
