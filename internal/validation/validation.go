package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// FieldErrors maps a JSON field name to its message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s: %s", field, f[field])
	}
	return strings.Join(parts, "; ")
}

func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// OrNil returns nil for an empty set so callers can return it as an error.
func (f FieldErrors) OrNil() FieldErrors {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Validator wraps go-playground/validator with the console's field naming
// and messages.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct validates s and returns one message per invalid field, or nil.
func (v *Validator) Struct(s any) FieldErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"_": err.Error()}
	}

	out := make(FieldErrors, len(validationErrors))
	for _, fieldError := range validationErrors {
		out.Add(fieldError.Field(), message(fieldError))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return "Select one of: " + strings.ReplaceAll(fe.Param(), "'", "")
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be %s or more", fe.Param())
	case "numeric", "number":
		return "Must be a number"
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "latitude":
		return "Invalid latitude"
	case "longitude":
		return "Invalid longitude"
	default:
		return "Invalid value"
	}
}

// Email reports whether s looks like an email address.
func (v *Validator) Email(s string) bool {
	return v.validate.Var(s, "required,email") == nil
}

// Phone reports whether s is 10 to 15 digits with an optional leading +.
func Phone(s string) bool {
	return phonePattern.MatchString(s)
}
