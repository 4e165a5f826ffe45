package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Identity is the caller as resolved from a bearer credential.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Seat struct {
	Number   string
	IsBooked bool
}

type Show struct {
	ID         int64
	MovieID    int64
	Date       string
	Time       string
	Screen     int
	PriceCents int64
	Seats      []Seat
	Version    int64
}

type Booking struct {
	ID              uuid.UUID
	UserID          string
	ShowID          int64
	Seats           []string
	TotalCents      int64
	Currency        string
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	PaymentMethod   string
	CreatedAt       time.Time
}

// StrandedCapture is a payment that was captured by the gateway while the
// booking that should have accompanied it was rolled back.
type StrandedCapture struct {
	ID          uuid.UUID
	CaptureID   string
	Provider    string
	UserID      string
	ShowID      int64
	Seats       []string
	AmountCents int64
	Currency    string
	Reason      string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	ResolvedBy  string
}
