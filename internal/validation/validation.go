// Package validation checks request payloads against struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ReservedCodes cannot be used as short codes because they collide with
// fixed routes.
var ReservedCodes = []string{"codes", "shorten", "user", "ping"}

var shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

var (
	once     sync.Once
	validate *validator.Validate
)

// Error reports every field that failed validation, keyed by its JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewError builds an Error for a single field.
func NewError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// Validate checks v and returns a *Error when any rule fails.
func Validate(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

// ValidShortCode reports whether code satisfies the shortcode rule.
func ValidShortCode(code string) bool {
	if !shortCodePattern.MatchString(code) {
		return false
	}
	for _, reserved := range ReservedCodes {
		if strings.EqualFold(code, reserved) {
			return false
		}
	}
	return true
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
		// Registration only fails for an empty tag or nil func.
		_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
			return ValidShortCode(fl.Field().String())
		})
	})
	return validate
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "url", "http_url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "shortcode":
		return "must be 1-32 letters, digits, '-' or '_' and not a reserved word"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
