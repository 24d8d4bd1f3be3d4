package validation

import (
	"chat-presence/errors"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Struct checks a command against its validate tags.
// Any violation is reported as an *errors.ValidationError listing every rejected field.
func Struct(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	fields := make([]errors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, toFieldError(fe))
	}
	return errors.NewValidationError(fields...)
}

func toFieldError(fe validator.FieldError) errors.FieldError {
	field := strings.ToLower(fe.Field())
	return errors.FieldError{
		Field:   field,
		Rule:    fe.Tag(),
		Message: describe(field, fe),
	}
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "number":
		return fmt.Sprintf("%s must be a non-negative integer", field)
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
