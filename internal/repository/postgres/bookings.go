package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
)

const bookingColumns = `b.id, b.user_id, b.show_id, b.seats, b.total_cents, b.currency,
	b.status, b.payment_status, b.payment_intent_id, b.payment_method, b.created_at`

type BookingRepo struct {
	pool Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a booking and fills in its CreatedAt.
//
// Returns:
//   - error: repository.ErrConflict if the id or capture reference is already used.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings(id, user_id, show_id, seats, total_cents, currency,
			status, payment_status, payment_intent_id, payment_method)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		b.ID, b.UserID, b.ShowID, b.Seats, b.TotalCents, b.Currency,
		string(b.Status), string(b.PaymentStatus), b.PaymentIntentID, b.PaymentMethod,
	).Scan(&b.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// FindByID retrieves a booking by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.FindByID"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings b
		 WHERE b.id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// FindByUser lists a user's bookings, newest first.
func (r *BookingRepo) FindByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.FindByUser"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings b
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC, b.id`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// FindByMovie lists bookings for every show of the movie, newest first.
func (r *BookingRepo) FindByMovie(ctx context.Context, movieID int64) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.FindByMovie"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings b
		 JOIN shows s ON s.id = b.show_id
		 WHERE s.movie_id = $1
		 ORDER BY b.created_at DESC, b.id`,
		movieID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectBookings(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		status        string
		paymentStatus string
	)

	if err := row.Scan(
		&b.ID, &b.UserID, &b.ShowID, &b.Seats, &b.TotalCents, &b.Currency,
		&status, &paymentStatus, &b.PaymentIntentID, &b.PaymentMethod, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)

	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}

	return out, rows.Err()
}
