package checkout

import (
	"context"

	"github.com/kirinyoku/cinebook/internal/domain"
	postgresrepo "github.com/kirinyoku/cinebook/internal/repository/postgres"
	"github.com/kirinyoku/cinebook/internal/uow"
)

// PostgresUnit runs booking units as READ COMMITTED transactions. The
// SELECT ... FOR UPDATE on the show row serialises units per show while
// units for other shows proceed in parallel.
type PostgresUnit struct {
	store *postgresrepo.Store
	uow   *uow.UoW
}

func NewPostgresUnit(store *postgresrepo.Store) *PostgresUnit {
	return &PostgresUnit{store: store, uow: uow.NewUoW(store)}
}

func (u *PostgresUnit) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx Tx, after func(uow.AfterCommit)) error,
) error {
	return u.uow.DoWithOpts(ctx, uow.ReadCommitted, func(
		ctx context.Context,
		db postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		return fn(ctx, &pgTx{
			shows:    u.store.Shows().With(db),
			bookings: u.store.Bookings().With(db),
		}, after)
	})
}

type pgTx struct {
	shows    *postgresrepo.ShowRepo
	bookings *postgresrepo.BookingRepo
}

func (t *pgTx) LoadShowForUpdate(ctx context.Context, showID int64) (*domain.Show, error) {
	return t.shows.LoadForUpdate(ctx, showID)
}

func (t *pgTx) CreateBooking(ctx context.Context, b *domain.Booking) error {
	return t.bookings.Create(ctx, b)
}

func (t *pgTx) MarkSeatsBooked(ctx context.Context, showID int64, seats []string) (int64, error) {
	if err := t.shows.MarkSeatsBooked(ctx, showID, seats); err != nil {
		return 0, err
	}

	return t.shows.BumpVersion(ctx, showID)
}
