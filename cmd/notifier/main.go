package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"venuebook/internal/bookings/handler"
	"venuebook/internal/notifications"
	"venuebook/pkg/config"
	"venuebook/pkg/kafka"
	kafka_config "venuebook/pkg/kafka/config"
	kafka_middleware "venuebook/pkg/kafka/middleware"
	"venuebook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

func main() {
	cfg := config.Load(config.ServiceNotifier)
	cfg.Log.Info("Starting Notifier service")

	cfg.SetRedis()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	notifier := notifications.NewNotifier(cfg.Client.Redis, cfg.InboxSize, cfg.Log)
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.NotifyTopic, cfg.NotifyDLQTopic, notifier.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}
	consumer.Use(metrics.ConsumerMiddleware())

	health := handler.NewHealthHandler(cfg.Log).
		AddCheck("redis", func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}).
		AddComponent("kafka_consumer", func() any { return metrics.Snapshot() })
	server := healthServer(cfg, health)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		cfg.Log.Info("Starting health server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Health server failed", "error", err)
			stop()
		}
	}()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		cfg.Log.Info("Shutdown signal received")
	case err := <-consumerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Kafka consumer stopped", "error", err)
		}
		stop()
	}

	shutdown(cfg, server, consumer)
}

func healthServer(cfg *config.Config, health *handler.HealthHandler) *http.Server {
	router := httprouter.New()
	health.RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func shutdown(cfg *config.Config, server *http.Server, consumer *kafka.Consumer) {
	cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		cfg.Log.Error("Health server shutdown failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Kafka consumer close failed", "error", err)
	}
	cfg.GracefulShutdown()

	cfg.Log.Info("Notifier stopped")
}
