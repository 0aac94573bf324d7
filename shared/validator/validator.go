// Package validator checks request shapes declared with `validate` struct tags and renders
// failures as a field -> message object using the English translations of go-playground/validator.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

const (
	// TagCalendarDate accepts any string ParseDate understands.
	TagCalendarDate = "calendardate"
	// TagAtLeastOne is reported by struct-level rules requiring one of several optional fields.
	TagAtLeastOne = "atleastone"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1-2-2006",
	"1/2/2006",
}

// ParseDate parses a calendar date and truncates it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ValidationError is the failed result of validating a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field + " error": msg}}
}

// Validator wraps a validator instance together with its English translator.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New creates a Validator that names fields after their json tags.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")

	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("register translations: %w", err)
	}

	if err := validate.RegisterValidation(TagCalendarDate, func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register %s: %w", TagCalendarDate, err)
	}

	if err := registerTranslation(validate, trans, TagCalendarDate, "{0} must be a valid date"); err != nil {
		return nil, err
	}
	if err := registerTranslation(validate, trans, TagAtLeastOne, "at least one of {0} is required"); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, trans: trans}, nil
}

// RegisterStructValidation adds a struct-level rule. It must be called before the
// validator is shared between goroutines.
func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...any) {
	v.validate.RegisterStructValidation(fn, types...)
}

// Validate checks s and returns nil when it is valid.
func (v *Validator) Validate(s any) *ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("request", err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()+" error"] = fe.Translate(v.trans)
	}

	return &ValidationError{Fields: fields}
}

// registerTranslation registers text for tag; {0} is the field name, or the rule
// parameter for TagAtLeastOne.
func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	err := validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			arg := fe.Field()
			if tag == TagAtLeastOne {
				arg = fe.Param()
			}
			msg, err := ut.T(tag, arg)
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
	if err != nil {
		return fmt.Errorf("register %s translation: %w", tag, err)
	}

	return nil
}
