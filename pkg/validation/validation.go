package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "warden/pkg/domain-errors"
	s "warden/pkg/string"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks req's struct tags and returns a validation domain error
// naming the first offending field.
func Validate(req any) error {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}
	field, msg := describe(err)
	if field == "" {
		return dErrors.New(dErrors.CodeValidation, msg)
	}
	return dErrors.Validation(field, msg)
}

// ErrorMessage converts a validator error into a human-readable message.
func ErrorMessage(err error) string {
	field, msg := describe(err)
	if field == "" {
		return msg
	}
	return field + " " + msg
}

func describe(err error) (string, string) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "", "invalid request"
	}

	fe := validationErrs[0]
	fieldName := fe.Field()
	if fieldName == "" {
		fieldName = fe.StructField()
	}
	field := s.ToSnakeCase(fieldName)

	switch fe.ActualTag() {
	case "required":
		return field, "is required"
	case "email":
		return field, "must be a valid email"
	case "ip":
		return field, "must be a valid ip address"
	case "min":
		return field, fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return field, fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return field, fmt.Sprintf("must be one of [%s]", fe.Param())
	case "notblank":
		return field, "must not be blank"
	default:
		return field, "is invalid"
	}
}
