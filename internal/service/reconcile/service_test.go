package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type memRepo struct {
	mu      sync.Mutex
	entries []domain.StrandedCapture
	listed  chan struct{}
}

func (r *memRepo) Create(ctx context.Context, sc *domain.StrandedCapture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc.CreatedAt = time.Unix(1700000000, 0)
	r.entries = append(r.entries, *sc)
	return nil
}

func (r *memRepo) ListPending(ctx context.Context, limit int) ([]domain.StrandedCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.StrandedCapture{}
	for _, e := range r.entries {
		if e.ResolvedAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	if r.listed != nil {
		select {
		case r.listed <- struct{}{}:
		default:
		}
	}
	return out, nil
}

func (r *memRepo) Resolve(ctx context.Context, id uuid.UUID, by string) (*domain.StrandedCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ID != id {
			continue
		}
		if r.entries[i].ResolvedAt != nil {
			return nil, fmt.Errorf("resolve: %w", repository.ErrAlreadyResolved)
		}
		now := time.Now()
		r.entries[i].ResolvedAt = &now
		r.entries[i].ResolvedBy = by
		sc := r.entries[i]
		return &sc, nil
	}
	return nil, fmt.Errorf("resolve: %w", repository.ErrNotFound)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

type ReconcileSuite struct {
	suite.Suite

	repo *memRepo
	pub  *capturePublisher
	svc  *Service
	ctx  context.Context
}

func (s *ReconcileSuite) SetupTest() {
	s.repo = &memRepo{}
	s.pub = &capturePublisher{}
	s.svc = New(s.repo, s.pub, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
	s.ctx = context.Background()
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

var (
	operator = domain.Identity{UserID: "ops", Role: domain.RoleAdmin}
	customer = domain.Identity{UserID: "u1", Role: domain.RoleUser}
)

func (s *ReconcileSuite) record() domain.StrandedCapture {
	sc := &domain.StrandedCapture{
		ID: uuid.New(), CaptureID: "pi_1", Provider: "stripe", UserID: "u1",
		ShowID: 7, Seats: []string{"A1"}, AmountCents: 1000, Currency: "usd", Reason: "commit failed",
	}
	s.Require().NoError(s.svc.Record(s.ctx, sc))
	return *sc
}

func (s *ReconcileSuite) TestRecordPersistsAndPublishes() {
	sc := s.record()

	s.Len(s.repo.entries, 1)
	s.Require().Len(s.pub.events, 1)

	ev, ok := s.pub.events[0].(events.PaymentStranded)
	s.Require().True(ok)
	s.Equal(sc.ID, ev.StrandedID)
	s.Equal("pi_1", ev.CaptureID)
	s.Equal(events.KeyPaymentStranded, ev.RoutingKey())
}

func (s *ReconcileSuite) TestRecordSurvivesPublishFailure() {
	s.pub.err = errors.New("broker down")

	s.record()
	s.Len(s.repo.entries, 1)
}

func (s *ReconcileSuite) TestListPendingAdminOnly() {
	s.record()

	_, err := s.svc.ListPending(s.ctx, customer)
	s.ErrorIs(err, ErrAccessDenied)

	out, err := s.svc.ListPending(s.ctx, operator)
	s.Require().NoError(err)
	s.Len(out, 1)
}

func (s *ReconcileSuite) TestResolve() {
	sc := s.record()

	_, err := s.svc.Resolve(s.ctx, sc.ID, customer)
	s.ErrorIs(err, ErrAccessDenied)

	got, err := s.svc.Resolve(s.ctx, sc.ID, operator)
	s.Require().NoError(err)
	s.Equal("ops", got.ResolvedBy)
	s.NotNil(got.ResolvedAt)

	_, err = s.svc.Resolve(s.ctx, sc.ID, operator)
	s.ErrorIs(err, ErrAlreadyResolved)

	_, err = s.svc.Resolve(s.ctx, uuid.New(), operator)
	s.ErrorIs(err, ErrEntryNotFound)

	out, err := s.svc.ListPending(s.ctx, operator)
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *ReconcileSuite) TestSweepRepublishesUnresolved() {
	a := s.record()
	b := s.record()
	_, err := s.svc.Resolve(s.ctx, b.ID, operator)
	s.Require().NoError(err)
	s.pub.events = nil

	n, err := s.svc.Sweep(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, n)
	s.Require().Len(s.pub.events, 1)
	s.Equal(a.ID, s.pub.events[0].(events.PaymentStranded).StrandedID)
}

func TestScheduleRunsSweepImmediately(t *testing.T) {
	repo := &memRepo{listed: make(chan struct{}, 1)}
	svc := New(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	job, err := svc.Schedule(sched, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "reconcile-sweep", job.Name())

	sched.Start()

	select {
	case <-repo.listed:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not run")
	}
}
