package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInstruction = errors.New("invalid payment instruction")
	ErrDeclined           = errors.New("payment declined")
)

type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInstruction, e.Field, e.Reason)
}

func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidInstruction
}

// DeclineError is a refusal reported by the provider for the instrument
// itself, as opposed to a transport or configuration failure.
type DeclineError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *DeclineError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrDeclined, e.Message, e.DeclineCode)
	}
	return fmt.Sprintf("%s: %s", ErrDeclined, e.Message)
}

func (e *DeclineError) Unwrap() error {
	return ErrDeclined
}
