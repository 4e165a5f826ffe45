package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyPaymentStranded  = "payment.stranded"
)

// Event is a domain fact published after it became true.
type Event interface {
	// RoutingKey selects the topic-exchange binding or Kafka event type.
	RoutingKey() string
	// PartitionKey keeps events about one show in order.
	PartitionKey() string
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type BookingConfirmed struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     string    `json:"user_id"`
	ShowID     int64     `json:"show_id"`
	Seats      []string  `json:"seats"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	CaptureID  string    `json:"capture_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (BookingConfirmed) RoutingKey() string     { return KeyBookingConfirmed }
func (e BookingConfirmed) PartitionKey() string { return strconv.FormatInt(e.ShowID, 10) }

// PaymentStranded is raised when a capture succeeded but its booking did not
// commit. It repeats until an operator resolves the entry.
type PaymentStranded struct {
	StrandedID  uuid.UUID `json:"stranded_id"`
	CaptureID   string    `json:"capture_id"`
	Provider    string    `json:"provider"`
	UserID      string    `json:"user_id"`
	ShowID      int64     `json:"show_id"`
	Seats       []string  `json:"seats"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (PaymentStranded) RoutingKey() string     { return KeyPaymentStranded }
func (e PaymentStranded) PartitionKey() string { return strconv.FormatInt(e.ShowID, 10) }

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
