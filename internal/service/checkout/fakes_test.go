package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/uow"
)

// memUnit is an in-memory UnitOfWork. LoadShowForUpdate takes a per-show
// mutex held until the unit ends, and writes are staged until commit.
type memUnit struct {
	mu         sync.Mutex
	shows      map[int64]*domain.Show
	locks      map[int64]*sync.Mutex
	bookings   []domain.Booking
	commitErr  error
	createErr  error
}

func newMemUnit(shows ...*domain.Show) *memUnit {
	u := &memUnit{
		shows: make(map[int64]*domain.Show),
		locks: make(map[int64]*sync.Mutex),
	}
	for _, s := range shows {
		u.shows[s.ID] = s
		u.locks[s.ID] = &sync.Mutex{}
	}
	return u
}

func (u *memUnit) Do(ctx context.Context, fn func(ctx context.Context, tx Tx, after func(uow.AfterCommit)) error) error {
	tx := &memTx{unit: u, flips: map[int64][]string{}}
	defer tx.release()

	var hooks []uow.AfterCommit
	if err := fn(ctx, tx, func(h uow.AfterCommit) { hooks = append(hooks, h) }); err != nil {
		return err
	}

	u.mu.Lock()
	if u.commitErr != nil {
		u.mu.Unlock()
		return u.commitErr
	}
	for showID, seats := range tx.flips {
		show := u.shows[showID]
		for _, n := range seats {
			for i := range show.Seats {
				if show.Seats[i].Number == n {
					show.Seats[i].IsBooked = true
				}
			}
		}
		show.Version++
	}
	u.bookings = append(u.bookings, tx.bookings...)
	u.mu.Unlock()

	tx.release()
	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (u *memUnit) seat(showID int64, number string) domain.Seat {
	u.mu.Lock()
	defer u.mu.Unlock()

	seat, _ := u.shows[showID].Seat(number)
	return seat
}

func (u *memUnit) bookingCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return len(u.bookings)
}

type memTx struct {
	unit     *memUnit
	held     []*sync.Mutex
	bookings []domain.Booking
	flips    map[int64][]string
}

func (t *memTx) release() {
	for _, m := range t.held {
		m.Unlock()
	}
	t.held = nil
}

func (t *memTx) LoadShowForUpdate(ctx context.Context, showID int64) (*domain.Show, error) {
	t.unit.mu.Lock()
	lock, ok := t.unit.locks[showID]
	t.unit.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("load: %w", repository.ErrNotFound)
	}

	lock.Lock()
	t.held = append(t.held, lock)

	t.unit.mu.Lock()
	defer t.unit.mu.Unlock()

	src := t.unit.shows[showID]
	cp := *src
	cp.Seats = append([]domain.Seat(nil), src.Seats...)
	return &cp, nil
}

func (t *memTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if t.unit.createErr != nil {
		return t.unit.createErr
	}
	t.bookings = append(t.bookings, *b)
	return nil
}

func (t *memTx) MarkSeatsBooked(ctx context.Context, showID int64, seats []string) (int64, error) {
	t.unit.mu.Lock()
	defer t.unit.mu.Unlock()

	show := t.unit.shows[showID]
	for _, n := range seats {
		seat, ok := show.Seat(n)
		if !ok || seat.IsBooked {
			return 0, repository.ErrSeatsUnavailable
		}
	}
	t.flips[showID] = append(t.flips[showID], seats...)

	return show.Version + 1, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []payment.CaptureRequest
	capture func(ctx context.Context, req payment.CaptureRequest) (*payment.Capture, error)
}

func (g *fakeGateway) Provider() string { return "fake" }

func (g *fakeGateway) Capture(ctx context.Context, req payment.CaptureRequest) (*payment.Capture, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	n := len(g.calls)
	g.mu.Unlock()

	if g.capture != nil {
		return g.capture(ctx, req)
	}

	return &payment.Capture{
		ID:          fmt.Sprintf("pi_%d", n),
		Status:      payment.StatusSucceeded,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.calls)
}

type recorder struct {
	mu          sync.Mutex
	invalidated []int64
	changed     []int64
	stranded    []domain.StrandedCapture
	published   []events.Event
	recordErr   error
}

func (r *recorder) InvalidateShow(ctx context.Context, showID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, showID)
	return nil
}

func (r *recorder) PublishShowChanged(ctx context.Context, showID, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, version)
	return nil
}

func (r *recorder) Record(ctx context.Context, sc *domain.StrandedCapture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.stranded = append(r.stranded, *sc)
	return nil
}

func (r *recorder) Publish(ctx context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

var errCommit = errors.New("connection reset during commit")
