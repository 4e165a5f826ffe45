package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
)

type Config struct {
	ShowTTL time.Duration
}

type ShowReader interface {
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
}

type Service struct {
	shows ShowReader
	cache *redisrepo.Cache
	cfg   Config
}

func New(shows ShowReader, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ShowTTL <= 0 {
		cfg.ShowTTL = 30 * time.Second
	}

	return &Service{
		shows: shows,
		cache: cache,
		cfg:   cfg,
	}
}

// Availability is the outcome of probing a set of seats.
type Availability struct {
	ShowID      int64
	Available   bool
	Unavailable []string
}

// GetShow retrieves a show with its seat map, utilizing a caching layer.
// The cached copy may lag a commit by at most the cache TTL.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the show to retrieve.
//
// Returns:
//   - *domain.Show: the show.
//   - error: query.ErrShowNotFound if the show does not exist.
func (s *Service) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "service.query.GetShow"

	show, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyShow(id),
		s.cfg.ShowTTL,
		func(ctx context.Context) (domain.Show, error) {
			sh, err := s.shows.GetShow(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Show{}, ErrShowNotFound
				}

				return domain.Show{}, err
			}

			return *sh, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &show, nil
}

// CheckSeats runs the availability check against a fresh snapshot. It is
// advisory: the booking itself re-checks under the show lock.
//
// Returns:
//   - error: query.ErrShowNotFound if the show does not exist.
//   - error: query.ErrNoSeats if seatIDs is empty.
func (s *Service) CheckSeats(ctx context.Context, showID int64, seatIDs []string) (*Availability, error) {
	const op = "service.query.CheckSeats"

	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeats)
	}

	show, err := s.shows.GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := &Availability{ShowID: showID, Available: true, Unavailable: []string{}}

	var ue *domain.UnavailableSeatsError
	if err := show.CheckAvailability(seatIDs); errors.As(err, &ue) {
		out.Available = false
		out.Unavailable = ue.SeatIDs
	}

	return out, nil
}

// Refresh drops the cached snapshot of a show if it is older than version.
// It closes the window in which a reader that loaded before a commit writes
// its stale copy back after the committer's invalidation.
func (s *Service) Refresh(ctx context.Context, showID, version int64) error {
	const op = "service.query.Refresh"

	if _, err := s.cache.InvalidateShowIfOlder(ctx, showID, version); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
