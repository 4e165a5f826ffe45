package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/repository"
)

type Repository interface {
	Create(ctx context.Context, sc *domain.StrandedCapture) error
	ListPending(ctx context.Context, limit int) ([]domain.StrandedCapture, error)
	Resolve(ctx context.Context, id uuid.UUID, by string) (*domain.StrandedCapture, error)
}

type Config struct {
	BatchSize int
}

// Service keeps track of payments that were captured without a booking and
// keeps raising them until an operator confirms the refund.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func New(repo Repository, publisher events.Publisher, logger *slog.Logger, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	if publisher == nil {
		publisher = events.Noop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Record persists a stranded capture and announces it. The record is what
// matters; a failed publish is only logged because Sweep announces it again.
func (s *Service) Record(ctx context.Context, sc *domain.StrandedCapture) error {
	const op = "service.reconcile.Record"

	if err := s.repo.Create(ctx, sc); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.announce(ctx, *sc)

	return nil
}

// ListPending returns unresolved entries, oldest first. Admin only.
func (s *Service) ListPending(ctx context.Context, caller domain.Identity) ([]domain.StrandedCapture, error) {
	const op = "service.reconcile.ListPending"

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrAccessDenied)
	}

	out, err := s.repo.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Resolve marks an entry as handled after the operator refunded or otherwise
// settled the capture. It does not move money.
//
// Returns:
//   - error: reconcile.ErrAccessDenied unless the caller is an admin.
//   - error: reconcile.ErrEntryNotFound if no entry has this ID.
//   - error: reconcile.ErrAlreadyResolved if it was resolved before.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, caller domain.Identity) (*domain.StrandedCapture, error) {
	const op = "service.reconcile.Resolve"

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrAccessDenied)
	}

	sc, err := s.repo.Resolve(ctx, id, caller.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, ErrEntryNotFound)
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, fmt.Errorf("%s:%w", op, ErrAlreadyResolved)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("stranded capture resolved",
		slog.String("reference", sc.ID.String()),
		slog.String("capture_id", sc.CaptureID),
		slog.String("resolved_by", caller.UserID),
	)

	return sc, nil
}

// Sweep logs every unresolved entry at ERROR and re-publishes it. It returns
// the number of entries found.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	const op = "service.reconcile.Sweep"

	pending, err := s.repo.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	for _, sc := range pending {
		s.logger.Error("unresolved stranded capture",
			slog.String("reference", sc.ID.String()),
			slog.String("capture_id", sc.CaptureID),
			slog.String("provider", sc.Provider),
			slog.Int64("amount_cents", sc.AmountCents),
			slog.String("currency", sc.Currency),
			slog.Duration("age", s.now().Sub(sc.CreatedAt)),
		)
		s.announce(ctx, sc)
	}

	return len(pending), nil
}

// Schedule registers Sweep on sched every interval, starting immediately.
// Overlapping runs are skipped.
func (s *Service) Schedule(sched gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	const op = "service.reconcile.Schedule"

	job, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("reconcile sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithName("reconcile-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return job, nil
}

func (s *Service) announce(ctx context.Context, sc domain.StrandedCapture) {
	err := s.publisher.Publish(ctx, events.PaymentStranded{
		StrandedID:  sc.ID,
		CaptureID:   sc.CaptureID,
		Provider:    sc.Provider,
		UserID:      sc.UserID,
		ShowID:      sc.ShowID,
		Seats:       sc.Seats,
		AmountCents: sc.AmountCents,
		Currency:    sc.Currency,
		Reason:      sc.Reason,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("publish payment stranded",
			slog.String("reference", sc.ID.String()),
			slog.String("seats", strings.Join(sc.Seats, ",")),
			slog.Any("error", err),
		)
	}
}
