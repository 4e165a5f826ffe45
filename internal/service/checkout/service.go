package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/uow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is a step of a single booking attempt.
type State string

const (
	StateValidating           State = "validating"
	StateCheckingAvailability State = "checking_availability"
	StateCapturingPayment     State = "capturing_payment"
	StateCommitting           State = "committing"
	StateDone                 State = "done"
	StateAborted              State = "aborted"
)

// Tx is the slice of persistence a booking unit needs. All calls share one
// transaction; LoadShowForUpdate holds the show exclusively until it ends.
type Tx interface {
	LoadShowForUpdate(ctx context.Context, showID int64) (*domain.Show, error)
	CreateBooking(ctx context.Context, b *domain.Booking) error
	// MarkSeatsBooked flips exactly the given seats and returns the show's
	// new version. It fails with repository.ErrSeatsUnavailable if any seat
	// was already booked.
	MarkSeatsBooked(ctx context.Context, showID int64, seats []string) (int64, error)
}

// UnitOfWork runs fn atomically. Writes made through tx are discarded when
// fn returns an error or the commit fails; hooks passed to after run only
// after a successful commit.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx, after func(uow.AfterCommit)) error) error
}

type ShowCache interface {
	InvalidateShow(ctx context.Context, showID int64) error
}

type ShowNotifier interface {
	PublishShowChanged(ctx context.Context, showID, version int64) error
}

// StrandedRecorder keeps a durable record of a capture whose booking was
// rolled back.
type StrandedRecorder interface {
	Record(ctx context.Context, sc *domain.StrandedCapture) error
}

type Config struct {
	Currency       string
	PaymentTimeout time.Duration
	UnitTimeout    time.Duration
}

type Deps struct {
	Unit      UnitOfWork
	Gateway   payment.Gateway
	Cache     ShowCache
	Notifier  ShowNotifier
	Stranded  StrandedRecorder
	Publisher events.Publisher
	Logger    *slog.Logger
}

type Service struct {
	unit      UnitOfWork
	gateway   payment.Gateway
	cache     ShowCache
	notifier  ShowNotifier
	stranded  StrandedRecorder
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	cfg       Config
	now       func() time.Time
	newID     func() uuid.UUID
}

func New(deps Deps, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 15 * time.Second
	}

	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = 10 * time.Second
	}

	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Service{
		unit:      deps.Unit,
		gateway:   deps.Gateway,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		stranded:  deps.Stranded,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		tracer:    otel.Tracer("github.com/kirinyoku/cinebook/internal/service/checkout"),
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.New,
	}
}

type Request struct {
	UserID  string
	ShowID  int64
	SeatIDs []string
	Payment payment.Instruction
	// IdempotencyKey is forwarded to the gateway so a retried attempt cannot
	// charge twice. A random key is used when empty.
	IdempotencyKey string
}

type Result struct {
	Booking domain.Booking
	Receipt payment.Receipt
}

// CreateBooking locks the show, checks the requested seats, captures the
// payment and commits the booking together with the seat flips.
//
// Parameters:
//   - ctx: request-scoped context. Cancelling it aborts the attempt up to and
//     including the capture; once money moved the commit runs to completion.
//   - req: the booking request.
//
// Returns:
//   - *Result: the confirmed booking and the capture receipt.
//   - error: checkout.ErrInvalidRequest if the request is malformed.
//   - error: checkout.ErrShowNotFound if the show does not exist.
//   - error: checkout.ErrSeatsUnavailable (with *domain.UnavailableSeatsError).
//   - error: checkout.ErrPaymentFailed (with *checkout.PaymentFailedError).
//   - error: checkout.ErrPartialFailure (with *checkout.PartialFailureError).
func (s *Service) CreateBooking(ctx context.Context, req Request) (*Result, error) {
	const op = "service.checkout.CreateBooking"

	ctx, span := s.tracer.Start(ctx, "checkout.CreateBooking", trace.WithAttributes(
		attribute.Int64("show.id", req.ShowID),
		attribute.Int("seats.count", len(req.SeatIDs)),
	))
	defer span.End()

	state := StateValidating
	log := s.logger.With(slog.Int64("show_id", req.ShowID), slog.String("user_id", req.UserID))

	instr, err := s.validate(req)
	if err != nil {
		return nil, s.abort(span, log, state, fmt.Errorf("%s:%w", op, err))
	}
	req.Payment = instr

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = s.newID().String()
	}

	// The unit must be able to commit after a successful capture even if the
	// caller has gone away, so it only inherits values from ctx.
	unitCtx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		s.cfg.PaymentTimeout+s.cfg.UnitTimeout,
	)
	defer cancel()

	var (
		capture *payment.Capture
		result  *Result
	)

	err = s.unit.Do(unitCtx, func(txCtx context.Context, tx Tx, after func(uow.AfterCommit)) error {
		state = StateCheckingAvailability

		show, err := tx.LoadShowForUpdate(txCtx, req.ShowID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShowNotFound
			}
			return err
		}

		if err := show.CheckAvailability(req.SeatIDs); err != nil {
			return fmt.Errorf("%w: %w", ErrSeatsUnavailable, err)
		}

		state = StateCapturingPayment

		total := show.TotalCents(len(req.SeatIDs))

		c, err := s.capture(ctx, req, total)
		if err != nil {
			return err
		}
		capture = c

		state = StateCommitting

		booking := domain.Booking{
			ID:              s.newID(),
			UserID:          req.UserID,
			ShowID:          show.ID,
			Seats:           append([]string(nil), req.SeatIDs...),
			TotalCents:      total,
			Currency:        s.currencyOf(c),
			Status:          domain.BookingConfirmed,
			PaymentStatus:   domain.PaymentSucceeded,
			PaymentIntentID: c.ID,
			PaymentMethod:   s.gateway.Provider(),
		}
		if err := tx.CreateBooking(txCtx, &booking); err != nil {
			return err
		}

		version, err := tx.MarkSeatsBooked(txCtx, show.ID, req.SeatIDs)
		if err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.afterCommit(ctx, log, booking, version)
		})

		result = &Result{Booking: booking, Receipt: c.Receipt()}
		return nil
	})
	if err != nil {
		if capture != nil {
			return nil, s.abort(span, log, state, fmt.Errorf("%s:%w", op, s.strand(unitCtx, log, req, capture, err)))
		}
		return nil, s.abort(span, log, state, fmt.Errorf("%s:%w", op, err))
	}

	state = StateDone
	span.SetAttributes(attribute.String("booking.id", result.Booking.ID.String()))
	log.Info("booking confirmed",
		slog.String("booking_id", result.Booking.ID.String()),
		slog.String("capture_id", result.Receipt.CaptureID),
		slog.Int64("total_cents", result.Booking.TotalCents),
	)

	return result, nil
}

func (s *Service) validate(req Request) (payment.Instruction, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &InvalidRequestError{Field: "user", Reason: "is required"}
	}

	if req.ShowID <= 0 {
		return nil, &InvalidRequestError{Field: "show_id", Reason: "must be positive"}
	}

	if len(req.SeatIDs) == 0 {
		return nil, &InvalidRequestError{Field: "seats", Reason: "must not be empty"}
	}

	for _, id := range req.SeatIDs {
		if strings.TrimSpace(id) == "" {
			return nil, &InvalidRequestError{Field: "seats", Reason: "must not contain empty ids"}
		}
	}

	if dups := domain.DuplicateSeats(req.SeatIDs); len(dups) > 0 {
		return nil, &InvalidRequestError{Field: "seats", Reason: "contains duplicates: " + strings.Join(dups, ",")}
	}

	instr, err := payment.Validate(req.Payment, s.now())
	if err != nil {
		var fe *payment.InvalidFieldError
		if errors.As(err, &fe) {
			return nil, &InvalidRequestError{Field: "payment." + fe.Field, Reason: fe.Reason}
		}
		return nil, &InvalidRequestError{Field: "payment", Reason: err.Error()}
	}

	return instr, nil
}

// capture charges the total. It is bounded by the payment timeout and by the
// caller's context; every outcome other than a succeeded capture is a
// *PaymentFailedError.
func (s *Service) capture(ctx context.Context, req Request, total int64) (*payment.Capture, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "checkout.capture", trace.WithAttributes(
		attribute.String("payment.provider", s.gateway.Provider()),
		attribute.String("payment.method", string(req.Payment.Method())),
		attribute.Int64("payment.amount_cents", total),
	))
	defer span.End()

	c, err := s.gateway.Capture(ctx, payment.CaptureRequest{
		AmountCents: total,
		Currency:    s.cfg.Currency,
		Instruction: req.Payment,
		Metadata: map[string]string{
			"userId":    req.UserID,
			"showId":    strconv.FormatInt(req.ShowID, 10),
			"seats":     strings.Join(req.SeatIDs, ","),
			"seatCount": strconv.Itoa(len(req.SeatIDs)),
		},
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "capture failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			msg := "payment timed out"
			if errors.Is(ctxErr, context.Canceled) {
				msg = "payment cancelled"
			}
			return nil, &PaymentFailedError{Status: payment.StatusTimeout, Message: msg}
		}

		var decline *payment.DeclineError
		if errors.As(err, &decline) {
			return nil, &PaymentFailedError{
				Status:      payment.StatusFailed,
				Message:     decline.Message,
				DeclineCode: decline.DeclineCode,
			}
		}

		return nil, &PaymentFailedError{Status: payment.StatusFailed, Message: err.Error()}
	}

	if !c.Succeeded() {
		span.SetStatus(codes.Error, string(c.Status))
		return nil, &PaymentFailedError{
			Status:  c.Status,
			Message: "payment was not completed",
		}
	}

	span.SetAttributes(attribute.String("payment.capture_id", c.ID))
	return c, nil
}

// strand records a capture whose booking did not commit. The record is
// written outside the aborted unit; if even that fails the ERROR log line is
// the only trace left, so it carries everything needed to refund.
func (s *Service) strand(ctx context.Context, log *slog.Logger, req Request, c *payment.Capture, cause error) error {
	sc := &domain.StrandedCapture{
		ID:          s.newID(),
		CaptureID:   c.ID,
		Provider:    s.gateway.Provider(),
		UserID:      req.UserID,
		ShowID:      req.ShowID,
		Seats:       append([]string(nil), req.SeatIDs...),
		AmountCents: c.AmountCents,
		Currency:    s.currencyOf(c),
		Reason:      cause.Error(),
	}

	attrs := []any{
		slog.String("reference", sc.ID.String()),
		slog.String("capture_id", sc.CaptureID),
		slog.String("provider", sc.Provider),
		slog.Int64("amount_cents", sc.AmountCents),
		slog.String("seats", strings.Join(sc.Seats, ",")),
		slog.Any("error", cause),
	}

	if err := s.stranded.Record(ctx, sc); err != nil {
		log.Error("payment captured but booking failed; stranded capture not recorded",
			append(attrs, slog.Any("record_error", err))...)
	} else {
		log.Error("payment captured but booking failed", attrs...)
	}

	return &PartialFailureError{Reference: sc.ID, CaptureID: c.ID, Cause: cause}
}

func (s *Service) afterCommit(ctx context.Context, log *slog.Logger, b domain.Booking, version int64) {
	if s.cache != nil {
		if err := s.cache.InvalidateShow(ctx, b.ShowID); err != nil {
			log.Warn("invalidate show cache", slog.Any("error", err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishShowChanged(ctx, b.ShowID, version); err != nil {
			log.Warn("publish show changed", slog.Any("error", err))
		}
	}

	err := s.publisher.Publish(ctx, events.BookingConfirmed{
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowID:     b.ShowID,
		Seats:      b.Seats,
		TotalCents: b.TotalCents,
		Currency:   b.Currency,
		CaptureID:  b.PaymentIntentID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		log.Warn("publish booking confirmed", slog.Any("error", err))
	}
}

func (s *Service) abort(span trace.Span, log *slog.Logger, at State, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(at))
	span.SetAttributes(attribute.String("checkout.aborted_at", string(at)))

	log.Debug("booking aborted", slog.String("state", string(at)), slog.Any("error", err))

	return err
}

func (s *Service) currencyOf(c *payment.Capture) string {
	if c.Currency != "" {
		return c.Currency
	}
	return s.cfg.Currency
}
