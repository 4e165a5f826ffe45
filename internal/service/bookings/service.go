package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	FindByMovie(ctx context.Context, movieID int64) ([]domain.Booking, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForUser returns the caller's own bookings, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	const op = "service.bookings.ListForUser"

	out, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get retrieves a single booking.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: booking ID.
//   - caller: the resolved identity making the request.
//
// Returns:
//   - *domain.Booking: the booking, if the caller owns it or is an admin.
//   - error: bookings.ErrBookingNotFound if no booking has this ID.
//   - error: bookings.ErrAccessDenied if the caller may not see it.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller domain.Identity) (*domain.Booking, error) {
	const op = "service.bookings.Get"

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if b.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrAccessDenied)
	}

	return b, nil
}

// ListForMovie returns every booking on any show of the movie, newest first.
// Only admins may call it.
func (s *Service) ListForMovie(ctx context.Context, movieID int64, caller domain.Identity) ([]domain.Booking, error) {
	const op = "service.bookings.ListForMovie"

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrAccessDenied)
	}

	out, err := s.repo.FindByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
