// Package validation checks request payloads with go-playground/validator and
// reports failures as per-field details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error is returned when a payload fails validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message)
	}
	return strings.Join(messages, "; ")
}

// Field builds an *Error for a single field, for checks that live outside
// struct tags.
func Field(field, tag, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Tag: tag, Message: message}}}
}

// Validator wraps a configured validator instance. The genre set and clock
// are injected so callers and tests control them.
type Validator struct {
	validate *validator.Validate
	genres   map[string]struct{}
	now      func() time.Time
}

// New registers the "genre" and "pubyear" rules against the given genre set
// and clock. A nil clock means time.Now.
func New(genres []string, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		genres:   make(map[string]struct{}, len(genres)),
		now:      now,
	}
	for _, g := range genres {
		v.genres[g] = struct{}{}
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("genre", v.isGenre)
	_ = v.validate.RegisterValidation("pubyear", v.notAfterCurrentYear)
	return v
}

func (v *Validator) isGenre(fl validator.FieldLevel) bool {
	_, ok := v.genres[fl.Field().String()]
	return ok
}

func (v *Validator) notAfterCurrentYear(fl validator.FieldLevel) bool {
	return fl.Field().Int() <= int64(v.now().Year())
}

// Struct validates s and returns nil or an *Error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate payload: %w", err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: v.translate(fe),
		})
	}
	return out
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"genre":    "%s is not a known genre",
}

var messageWithParam = map[string]string{
	"oneof":   "%s must be one of: %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
	"eqfield": "%s must match %s",
}

func (v *Validator) translate(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if tmpl, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messageWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, strings.ToLower(param))
	}

	isString := fe.Kind() == reflect.String
	isList := fe.Kind() == reflect.Slice
	switch tag {
	case "pubyear":
		return fmt.Sprintf("%s must not be after %d", field, v.now().Year())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		if isList {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
