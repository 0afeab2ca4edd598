package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/audit"
	"github.com/Domenick1991/garagebooking/internal/cache"
	"github.com/Domenick1991/garagebooking/internal/email"
	"github.com/Domenick1991/garagebooking/internal/kafka"
	"github.com/Domenick1991/garagebooking/internal/notification"
	"github.com/Domenick1991/garagebooking/internal/payment"
	"github.com/Domenick1991/garagebooking/internal/pricing"
	"github.com/Domenick1991/garagebooking/internal/repository"
	"github.com/Domenick1991/garagebooking/internal/service/booking"
	"github.com/Domenick1991/garagebooking/internal/service/ledger"
	"github.com/Domenick1991/garagebooking/internal/vehicle"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const kafkaCheckTimeout = 5 * time.Second

// App holds the long-lived dependencies shared by the CLI commands.
type App struct {
	Pool     *pgxpool.Pool
	Cache    *cache.RedisCache
	Producer *kafka.Producer
	Pricing  *pricing.Engine
	Vehicles *vehicle.FallbackResolver
	Ledger   *ledger.Ledger
	Audit    *audit.Log
	Bookings *booking.BookingService
}

func NewApp(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Warn("postgres not reachable yet; bookings will fail until it is")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Session.TTL)
	if err := redisCache.Ping(ctx); err != nil {
		log.WithError(err).Warn("redis not reachable; selections and vehicle caching degraded")
	}

	app := &App{Pool: pool, Cache: redisCache, Pricing: pricing.NewEngine(cfg.Pricing)}

	remote := vehicle.NewRemoteResolver(cfg.Registry)
	cached := vehicle.NewCachingResolver(remote, redisCache, cfg.Registry.CacheTTL, log)
	app.Vehicles = vehicle.NewFallbackResolver(vehicle.WithTimeout(cached, cfg.Registry.Timeout), log)

	bookingRepo := repository.NewBookingRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	app.Ledger = ledger.New(bookingRepo, cfg.Booking, log)
	app.Audit = audit.New(auditRepo, cfg.Audit, log)

	var channel notification.Channel
	if cfg.Kafka.Enabled() {
		app.Producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		checkCtx, cancel := context.WithTimeout(ctx, kafkaCheckTimeout)
		if err := app.Producer.CheckConnection(checkCtx); err != nil {
			log.WithError(err).Warn("kafka not reachable; notifications will not be queued until it is")
		}
		cancel()
		channel = kafka.NewNotificationQueue(app.Producer, cfg.Kafka.NotificationsTopic)
		log.WithField("topic", cfg.Kafka.NotificationsTopic).Info("notifications queued through kafka")
	} else {
		channel = email.NewSender(cfg.SMTP, cfg.Notification.From)
	}
	dispatcher := notification.NewDispatcher(channel, cfg.Notification, app.Pricing, log)

	if !cfg.Payment.Configured() {
		log.Warn("payment gateway not configured; bookings stay pending")
	}
	gateway := payment.NewStripeGateway(cfg.Payment)

	app.Bookings = booking.NewBookingService(
		app.Vehicles,
		app.Pricing,
		app.Ledger,
		gateway,
		dispatcher,
		app.Audit,
		cfg.Booking.Currency,
		log,
		booking.WithSelectionStore(redisCache),
	)
	return app, nil
}

func (a *App) Close() {
	if a.Producer != nil {
		_ = a.Producer.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
