package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sahilchouksey/course-market/model"
)

// FieldErrors maps a JSON field name to a readable message
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, f[k])
	}
	return strings.Join(parts, "; ")
}

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports JSON field names and knows
// the catalog enums
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("course_level", func(fl validator.FieldLevel) bool {
		return model.IsValidCourseLevel(model.CourseLevel(fl.Field().String()))
	})
	_ = v.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		return model.IsValidCourseStatus(model.CourseStatus(fl.Field().String()))
	})
	_ = v.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return model.IsValidNotificationType(model.NotificationType(fl.Field().String()))
	})

	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags. Tag failures are
// returned as FieldErrors.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return FormatValidationErrors(validationErrs)
	}
	return err
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(errs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(errs))

	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		case "lte":
			out[field] = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
		case "gt":
			out[field] = fmt.Sprintf("%s must be greater than %s", field, e.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of [%s]", field, e.Param())
		case "uuid", "uuid4":
			out[field] = fmt.Sprintf("%s must be a valid id", field)
		case "url":
			out[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "course_level":
			out[field] = fmt.Sprintf("%s must be one of Pemula, Menengah, Lanjutan", field)
		case "course_status":
			out[field] = fmt.Sprintf("%s must be one of draft, published, archived", field)
		case "notification_type":
			out[field] = fmt.Sprintf("%s is not a known notification type", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return out
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
