package domain

import (
	"errors"
	"fmt"
)

// FlowError is what conversation flows return when a transition does not happen as asked.
// Kind is one of ErrPrecondition, ErrInvalidInput or ErrBusiness; Cause is the specific reason.
// Key is the message key shown to the user.
type FlowError struct {
	Kind  error
	Cause error
	Key   string
}

func (e *FlowError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Key)
	}
	return fmt.Sprintf("%v: %v (%s)", e.Kind, e.Cause, e.Key)
}

func (e *FlowError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewPreconditionError(key string, cause error) *FlowError {
	return &FlowError{Kind: ErrPrecondition, Cause: cause, Key: key}
}

func NewInvalidInputError(key string, cause error) *FlowError {
	return &FlowError{Kind: ErrInvalidInput, Cause: cause, Key: key}
}

func NewBusinessError(key string, cause error) *FlowError {
	return &FlowError{Kind: ErrBusiness, Cause: cause, Key: key}
}

// MessageKey extracts the user-facing key from err, or fallback when err is not a FlowError.
func MessageKey(err error, fallback string) string {
	var fe *FlowError
	if errors.As(err, &fe) && fe.Key != "" {
		return fe.Key
	}
	return fallback
}
