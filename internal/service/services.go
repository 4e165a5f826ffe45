package service

import (
	"log/slog"

	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/payment"
	postgresrepo "github.com/kirinyoku/cinebook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/bookings"
	"github.com/kirinyoku/cinebook/internal/service/checkout"
	"github.com/kirinyoku/cinebook/internal/service/query"
	"github.com/kirinyoku/cinebook/internal/service/reconcile"
)

type Services struct {
	Checkout  *checkout.Service
	Bookings  *bookings.Service
	Query     *query.Service
	Reconcile *reconcile.Service
}

type Config struct {
	Checkout  checkout.Config
	Query     query.Config
	Reconcile reconcile.Config
}

func NewServices(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowsPubSub,
	gateway payment.Gateway,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Services {
	rec := reconcile.New(store.Reconciliations(), publisher, logger, cfg.Reconcile)

	return &Services{
		Checkout: checkout.New(checkout.Deps{
			Unit:      checkout.NewPostgresUnit(store),
			Gateway:   gateway,
			Cache:     cache,
			Notifier:  pubsub,
			Stranded:  rec,
			Publisher: publisher,
			Logger:    logger,
		}, cfg.Checkout),
		Bookings:  bookings.New(store.Bookings()),
		Query:     query.New(store.Shows(), cache, cfg.Query),
		Reconcile: rec,
	}
}
