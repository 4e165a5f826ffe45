package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinebook/internal/auth"
	"github.com/kirinyoku/cinebook/internal/config"
	"github.com/kirinyoku/cinebook/internal/events"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/postgres"
	"github.com/kirinyoku/cinebook/internal/redis"
	postgresrepo "github.com/kirinyoku/cinebook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
	"github.com/kirinyoku/cinebook/internal/service/checkout"
	"github.com/kirinyoku/cinebook/internal/service/query"
	"github.com/kirinyoku/cinebook/internal/service/reconcile"
	httpgin "github.com/kirinyoku/cinebook/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisrepo.ShowsPubSub
	scheduler  gocron.Scheduler

	pool      *pgxpool.Pool
	rdb       *goredis.Client
	publisher events.Publisher
	shutdown  func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	shutdownTracer, err := initTracer(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Initialize dependencies
	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	store := postgresrepo.NewStore(pool)
	if cfg.Postgres.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	// Initialize repositories
	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewShowsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

	gateway := payment.NewStripeGateway(cfg.Payment.StripeSecretKey)

	// Initialize services
	services := service.NewServices(store, cache, pubsub, gateway, publisher, logger, service.Config{
		Checkout: checkout.Config{
			Currency:       cfg.Payment.Currency,
			PaymentTimeout: cfg.Payment.Timeout,
			UnitTimeout:    cfg.Booking.UnitTimeout,
		},
		Query:     query.Config{ShowTTL: cfg.Query.ShowTTL},
		Reconcile: reconcile.Config{},
	})

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		closeAll(pool, rdb, publisher, logger)
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if _, err := services.Reconcile.Schedule(scheduler, cfg.Reconcile.Interval); err != nil {
		_ = scheduler.Shutdown()
		closeAll(pool, rdb, publisher, logger)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Initialize Gin router
	router := httpgin.NewRouter(httpgin.Deps{
		Checkout:    services.Checkout,
		Bookings:    services.Bookings,
		Shows:       services.Query,
		Reconcile:   services.Reconcile,
		Identity:    auth.NewResolver(cfg.JWT.Secret, cfg.JWT.TTL),
		Idempotency: idempotencyStore,
		Limiter:     limiter,
		FrontendURL: cfg.CORS.FrontendURL,
		IdemLockTTL: cfg.Payment.Timeout + cfg.Booking.UnitTimeout,
	}, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		services:  services,
		pubsub:    pubsub,
		scheduler: scheduler,
		pool:      pool,
		rdb:       rdb,
		publisher: publisher,
		shutdown:  shutdownTracer,
	}, nil
}

// closeAll releases the clients opened by New when it cannot finish.
func closeAll(pool *pgxpool.Pool, rdb *goredis.Client, publisher events.Publisher, logger *slog.Logger) {
	if err := publisher.Close(); err != nil {
		logger.Warn("close event publisher", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Warn("close redis", "error", err)
	}
	pool.Close()
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Broker {
	case "rabbitmq":
		return events.NewRabbitPublisher(cfg.AMQPURL, cfg.Exchange)
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return events.Noop{}, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached shows that other instances changed
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, showID, version int64) {
			if err := a.services.Query.Refresh(ctx, showID, version); err != nil {
				a.logger.Warn("refresh cached show", "show_id", showID, "error", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shows subscription: %w", err)
		}
		return nil
	})

	// Reconciliation sweep
	g.Go(func() error {
		a.scheduler.Start()
		<-gCtx.Done()
		return a.scheduler.Shutdown()
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	closeAll(a.pool, a.rdb, a.publisher, a.logger)
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracer", "error", err)
	}
}
