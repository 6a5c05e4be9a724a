package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rental-payments/internal/config"
	"github.com/iliyamo/rental-payments/internal/database"
	"github.com/iliyamo/rental-payments/internal/handler"
	"github.com/iliyamo/rental-payments/internal/ledger"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/middleware"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
	"github.com/iliyamo/rental-payments/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "rental-payments",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		store repository.Store
		ping  handler.Pinger
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		store = repository.NewMemoryStore()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal("database connection failed", "error", err)
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				log.Fatal("migration failed", "error", err)
			}
		}
		store = repository.NewMySQLStore(db)
		ping = db
	}

	// Redis backs rate limiting and idempotency when reachable.
	rdb := config.NewRedisClient()
	var idemStore middleware.IdempotencyStore
	if rdb != nil {
		defer rdb.Close()
		idemStore = middleware.NewRedisIdempotencyStore(rdb)
	} else {
		log.Warn("redis unavailable; rate limiting disabled, idempotency kept in process")
		idemStore = middleware.NewMemoryIdempotencyStore()
	}

	// Events
	var notifier ledger.Notifier = queue.LogPublisher{Log: log}
	if cfg.RabbitURL != "" {
		notifier = queue.NewPublisher(cfg.RabbitURL, cfg.EventQueue, log)
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.EventQueue, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "error", err)
			}
		}()
	}

	eng := ledger.New(store,
		ledger.WithNotifier(notifier),
		ledger.WithLogger(log),
		ledger.WithLinkTTL(cfg.LinkTTL),
		ledger.WithLinkSecret(cfg.LinkTokenKey),
	)
	if cfg.LinkSweepInterval > 0 {
		go sweepLinks(ctx, eng, cfg.LinkSweepInterval, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogging(log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, ping)
	router.RegisterLedger(e, router.Handlers{
		Bookings: handler.NewBookingHandler(eng, log),
		Payments: handler.NewPaymentHandler(eng, log),
		Links:    handler.NewLinkHandler(eng, log),
	}, router.Guards{
		JWTSecret:   cfg.JWTSecret,
		Idempotency: middleware.Idempotency(config.LoadIdempotencyConfig(), idemStore, log),
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "storage", cfg.Storage)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	eng.Close()
	log.Info("stopped")
}

// sweepLinks expires active payment links past their expiry on a fixed
// interval.  Reads already treat them as expired; the sweep keeps the
// stored status honest for listings and reports.
func sweepLinks(ctx context.Context, eng *ledger.Engine, every time.Duration, log *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := eng.ExpireStaleLinks(ctx); err != nil {
				log.Error("link sweep failed", "error", err)
			}
		}
	}
}
