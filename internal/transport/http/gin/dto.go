package httpgin

import (
	"strings"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/service/checkout"
	"github.com/kirinyoku/cinebook/internal/service/query"
)

type CreateBookingRequest struct {
	ShowID  int64           `json:"show_id" binding:"required,gt=0"`
	Seats   []string        `json:"seats" binding:"required,min=1"`
	Payment *PaymentRequest `json:"payment"`
	// PaymentMethodID is the older flat form of a reference payment.
	PaymentMethodID string `json:"paymentMethodId"`
}

type PaymentRequest struct {
	Method          string       `json:"method" enums:"reference,card"`
	PaymentMethodID string       `json:"payment_method_id"`
	Card            *CardRequest `json:"card"`
}

type CardRequest struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVC        string `json:"cvc"`
	HolderName string `json:"holder_name"`
}

// instruction maps the wire payment onto a payment.Instruction. A nil
// instruction is left for the checkout validation to reject.
func (r CreateBookingRequest) instruction() (payment.Instruction, bool) {
	if r.Payment == nil {
		if r.PaymentMethodID != "" {
			return payment.ByReference{Token: r.PaymentMethodID}, true
		}
		return nil, true
	}

	switch strings.ToLower(r.Payment.Method) {
	case "", string(payment.MethodReference):
		if r.Payment.Card != nil && r.Payment.PaymentMethodID == "" {
			return cardInstruction(r.Payment.Card), true
		}
		return payment.ByReference{Token: r.Payment.PaymentMethodID}, true
	case string(payment.MethodCard):
		if r.Payment.Card == nil {
			return nil, true
		}
		return cardInstruction(r.Payment.Card), true
	default:
		return nil, false
	}
}

func cardInstruction(c *CardRequest) payment.Instruction {
	return payment.ByRawCard{
		Number:     c.Number,
		ExpMonth:   c.ExpMonth,
		ExpYear:    c.ExpYear,
		CVC:        c.CVC,
		HolderName: c.HolderName,
	}
}

type ErrorResponse struct {
	Error            string   `json:"error"`
	Message          string   `json:"message,omitempty"`
	Status           string   `json:"status,omitempty"`
	DeclineCode      string   `json:"decline_code,omitempty"`
	UnavailableSeats []string `json:"unavailable_seats,omitempty"`
	Reference        string   `json:"reference,omitempty"`
}

type BookingResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ShowID          int64     `json:"show_id"`
	Seats           []string  `json:"seats"`
	TotalCents      int64     `json:"total_cents"`
	TotalAmount     float64   `json:"total_amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PaymentMethod   string    `json:"payment_method"`
	CreatedAt       time.Time `json:"created_at"`
}

func toBookingResponse(b domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		UserID:          b.UserID,
		ShowID:          b.ShowID,
		Seats:           b.Seats,
		TotalCents:      b.TotalCents,
		TotalAmount:     float64(b.TotalCents) / 100,
		Currency:        b.Currency,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentIntentID: b.PaymentIntentID,
		PaymentMethod:   b.PaymentMethod,
		CreatedAt:       b.CreatedAt,
	}
}

func toBookingResponses(bs []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResponse(b))
	}
	return out
}

type ReceiptResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

type CreateBookingResponse struct {
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
	Payment ReceiptResponse `json:"payment"`
}

func toCreateBookingResponse(res *checkout.Result) CreateBookingResponse {
	return CreateBookingResponse{
		Message: "Booking and payment successful",
		Booking: toBookingResponse(res.Booking),
		Payment: ReceiptResponse{
			ID:          res.Receipt.CaptureID,
			Status:      string(res.Receipt.Status),
			AmountCents: res.Receipt.AmountCents,
			Amount:      float64(res.Receipt.AmountCents) / 100,
			Currency:    res.Receipt.Currency,
		},
	}
}

type BookingListResponse struct {
	Message  string            `json:"message"`
	Bookings []BookingResponse `json:"bookings"`
}

type BookingDetailResponse struct {
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
}

type SeatResponse struct {
	Number   string `json:"number"`
	IsBooked bool   `json:"is_booked"`
}

type ShowResponse struct {
	ID             int64          `json:"id"`
	MovieID        int64          `json:"movie_id"`
	Date           string         `json:"date"`
	Time           string         `json:"time"`
	Screen         int            `json:"screen"`
	PriceCents     int64          `json:"price_cents"`
	Price          float64        `json:"price"`
	Version        int64          `json:"version"`
	AvailableSeats int            `json:"available_seats"`
	Seats          []SeatResponse `json:"seats"`
}

func toShowResponse(s *domain.Show) ShowResponse {
	seats := make([]SeatResponse, 0, len(s.Seats))
	for _, seat := range s.Seats {
		seats = append(seats, SeatResponse{Number: seat.Number, IsBooked: seat.IsBooked})
	}

	return ShowResponse{
		ID:             s.ID,
		MovieID:        s.MovieID,
		Date:           s.Date,
		Time:           s.Time,
		Screen:         s.Screen,
		PriceCents:     s.PriceCents,
		Price:          float64(s.PriceCents) / 100,
		Version:        s.Version,
		AvailableSeats: s.AvailableCount(),
		Seats:          seats,
	}
}

type AvailabilityResponse struct {
	ShowID           int64    `json:"show_id"`
	Available        bool     `json:"available"`
	UnavailableSeats []string `json:"unavailable_seats"`
}

func toAvailabilityResponse(a *query.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		ShowID:           a.ShowID,
		Available:        a.Available,
		UnavailableSeats: a.Unavailable,
	}
}

type StrandedCaptureResponse struct {
	ID          string     `json:"id"`
	CaptureID   string     `json:"capture_id"`
	Provider    string     `json:"provider"`
	UserID      string     `json:"user_id"`
	ShowID      int64      `json:"show_id"`
	Seats       []string   `json:"seats"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
}

func toStrandedResponse(sc domain.StrandedCapture) StrandedCaptureResponse {
	return StrandedCaptureResponse{
		ID:          sc.ID.String(),
		CaptureID:   sc.CaptureID,
		Provider:    sc.Provider,
		UserID:      sc.UserID,
		ShowID:      sc.ShowID,
		Seats:       sc.Seats,
		AmountCents: sc.AmountCents,
		Currency:    sc.Currency,
		Reason:      sc.Reason,
		CreatedAt:   sc.CreatedAt,
		ResolvedAt:  sc.ResolvedAt,
		ResolvedBy:  sc.ResolvedBy,
	}
}

type StrandedListResponse struct {
	Entries []StrandedCaptureResponse `json:"entries"`
}
