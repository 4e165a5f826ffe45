package checkout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/payment"
)

var (
	ErrInvalidRequest   = errors.New("invalid booking request")
	ErrShowNotFound     = errors.New("show not found")
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrPartialFailure   = errors.New("payment captured but booking not recorded")
)

type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *InvalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

// PaymentFailedError describes a capture that did not succeed. No seat was
// booked and nothing was persisted.
type PaymentFailedError struct {
	Status      payment.Status
	Message     string
	DeclineCode string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrPaymentFailed, e.Status, e.Message)
}

func (e *PaymentFailedError) Unwrap() error {
	return ErrPaymentFailed
}

// PartialFailureError is returned when money was captured but the booking
// could not be committed. Reference identifies the stranded-capture entry an
// operator uses to refund.
type PartialFailureError struct {
	Reference uuid.UUID
	CaptureID string
	Cause     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: capture %s, reference %s: %v", ErrPartialFailure, e.CaptureID, e.Reference, e.Cause)
}

func (e *PartialFailureError) Unwrap() error {
	return ErrPartialFailure
}
