package main

import (
	"context"

	"venuebook/internal/bookings/handler"
	"venuebook/internal/bookings/notify"
	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/service"
	"venuebook/internal/bookings/validator"
	"venuebook/pkg/app"
	"venuebook/pkg/auth"
	"venuebook/pkg/config"
	"venuebook/pkg/kafka"
	kafka_config "venuebook/pkg/kafka/config"
	kafka_middleware "venuebook/pkg/kafka/middleware"
	"venuebook/pkg/middleware"
)

func main() {
	cfg := config.Load(config.ServiceBookings)
	cfg.Log.Info("Starting Bookings service")

	cfg.SetMongo()
	if cfg.NeedsRedis() {
		cfg.SetRedis()
	}

	serverApp := app.NewApplication()
	health := handler.NewHealthHandler(cfg.Log).
		AddCheck("mongo", func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		})

	var idempotencyStore middleware.IdempotencyStore
	if cfg.Client.Redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		})
		idempotencyStore = middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL)
	}

	notifier := initNotifier(cfg, serverApp, health)
	bookingService, statsService := initServices(cfg, notifier)

	serverApp.SetApp(cfg,
		health,
		handler.NewBookingHandler(bookingService, statsService, cfg.Log),
		auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		idempotencyStore,
	)
	serverApp.OnShutdown("clients", func(context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, notifier service.Notifier) (service.BookingService, service.StatsService) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)

	locker, err := repository.NewSlotLocker(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create slot locker", "error", err)
	}

	var statsCache service.StatsCache
	if cfg.StatsCacheEnabled {
		statsCache = service.NewRedisStatsCache(cfg.Client.Redis, cfg.StatsCacheTTL)
	}

	bookingService := service.NewBookingService(bookingRepo, locker, bookingValidator, notifier, statsCache, cfg)
	statsService := service.NewStatsService(bookingRepo, bookingValidator, statsCache, cfg)

	cfg.Log.Info("Booking services initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
		"stats_cache", cfg.StatsCacheEnabled,
	)
	return bookingService, statsService
}

// initNotifier publishes booking events to Kafka through a bounded
// dispatcher. The dispatcher drains before the producer closes.
func initNotifier(cfg *config.Config, serverApp *app.Application, health *handler.HealthHandler) service.Notifier {
	if !cfg.NotifyEnabled {
		cfg.Log.Info("Notifications disabled")
		return service.NewNopNotifier()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotifyTopic, cfg.NotifyDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	producer.Use(metrics.ProducerMiddleware())

	dispatcher := notify.NewDispatcher(producer, cfg.NotifyQueueSize, cfg.NotifyWorkers, cfg.Log)
	dispatcher.Start()

	health.AddComponent("notifications", func() any { return dispatcher.Stats() })
	health.AddComponent("kafka_producer", func() any { return metrics.Snapshot() })

	serverApp.OnShutdown("notification dispatcher", dispatcher.Close)
	serverApp.OnShutdown("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	cfg.Log.Info("Notifications enabled", "topic", producer.Topic(), "workers", cfg.NotifyWorkers)
	return dispatcher
}
