package errors

import (
	"fmt"
	"strings"
)

var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrConflict           = fmt.Errorf("participant already exists")
	ErrNotFound           = fmt.Errorf("participant not found")
	ErrUnauthorized       = fmt.Errorf("sender is not an active participant")
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrLeaveNoticeLost    = fmt.Errorf("leave notice not recorded")
	ErrUnknownDriver      = fmt.Errorf("unknown store driver")
)

// FieldError describes one rejected field of an inbound command.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is an ErrInvalidInput carrying field-level detail.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
