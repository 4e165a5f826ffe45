package postgresrepo

import (
	"context"
	"fmt"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type ShowRepo struct {
	pool Pool
	db   DB
}

func (r *ShowRepo) With(db DB) *ShowRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ShowRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetShow retrieves a show and its seat map without locking.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the show to retrieve.
//
// Returns:
//   - *domain.Show: the show with seats ordered by position.
//   - error: repository.ErrNotFound if the show does not exist.
func (r *ShowRepo) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.ShowRepo.GetShow"

	show, err := r.load(ctx, r.handle(), id, false)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return show, nil
}

// LoadForUpdate locks the show row for the rest of the surrounding
// transaction and returns the seat map as seen after the lock was granted.
// Every writer of show_seats goes through this lock, so the snapshot stays
// current until the transaction ends.
//
// Parameters:
//   - ctx: context of the surrounding unit of work.
//   - id: unique identifier of the show to lock.
//
// Returns:
//   - *domain.Show: the locked show with seats ordered by position.
//   - error: repository.ErrNotFound if the show does not exist.
func (r *ShowRepo) LoadForUpdate(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.ShowRepo.LoadForUpdate"

	show, err := r.load(ctx, r.handle(), id, true)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return show, nil
}

// MarkSeatsBooked flips exactly the given seats to booked. The update only
// touches seats that are still free, so fewer affected rows than requested
// seats means the request lost a race or named a seat that does not exist.
//
// Returns:
//   - error: repository.ErrSeatsUnavailable if not every seat was flipped.
func (r *ShowRepo) MarkSeatsBooked(ctx context.Context, showID int64, seats []string) error {
	const op = "postgres.ShowRepo.MarkSeatsBooked"

	tag, err := r.handle().Exec(ctx,
		`UPDATE show_seats
		 SET is_booked = true
		 WHERE show_id = $1
		   AND seat_number = ANY($2)
		   AND NOT is_booked`,
		showID, seats,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(seats) {
		return fmt.Errorf("%s:%w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

// BumpVersion increments the show's version and returns the new value.
func (r *ShowRepo) BumpVersion(ctx context.Context, showID int64) (int64, error) {
	const op = "postgres.ShowRepo.BumpVersion"

	var version int64
	err := r.handle().QueryRow(ctx,
		`UPDATE shows SET version = version + 1
		 WHERE id = $1
		 RETURNING version`,
		showID,
	).Scan(&version)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return version, nil
}

func (r *ShowRepo) load(ctx context.Context, db DB, id int64, forUpdate bool) (*domain.Show, error) {
	q := `SELECT id, movie_id, show_date, show_time, screen, price_cents, version
		  FROM shows WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var s domain.Show
	if err := db.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.Date, &s.Time, &s.Screen, &s.PriceCents, &s.Version,
	); err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx,
		`SELECT seat_number, is_booked
		 FROM show_seats
		 WHERE show_id = $1
		 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seat domain.Seat
		if err := rows.Scan(&seat.Number, &seat.IsBooked); err != nil {
			return nil, err
		}
		s.Seats = append(s.Seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}
