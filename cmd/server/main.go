// Command server runs the portfolio valuation HTTP service, optionally
// ingesting broker trades from Kafka.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-valuation-service/internal/api"
	"github.com/trogers1052/portfolio-valuation-service/internal/cache"
	"github.com/trogers1052/portfolio-valuation-service/internal/config"
	"github.com/trogers1052/portfolio-valuation-service/internal/database"
	"github.com/trogers1052/portfolio-valuation-service/internal/engine"
	"github.com/trogers1052/portfolio-valuation-service/internal/kafka"
	"github.com/trogers1052/portfolio-valuation-service/internal/logger"
	"github.com/trogers1052/portfolio-valuation-service/internal/portfolio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Msg("Starting portfolio valuation service")

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("path", cfg.Database.MigrationsPath).Msg("Migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	classifications := cache.NewClassificationCache(redisClient, cfg.Redis.ClassificationTTL, log)

	eng := engine.New(
		engine.WithLogger(log),
		engine.WithMaxHistoryDays(cfg.Engine.MaxHistoryDays),
		engine.WithStaleAfterDays(cfg.Engine.StaleAfterDays),
	)

	var producer *kafka.Producer
	var publisher portfolio.Publisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.LedgerTopic)
		defer producer.Close()
		publisher = producer
	}

	svc := portfolio.NewService(db, classifications, publisher, eng, portfolio.Config{
		BenchmarkName:     cfg.Engine.BenchmarkName,
		PriceLookbackDays: cfg.Engine.PriceLookbackDays,
		MaxHistoryDays:    cfg.Engine.MaxHistoryDays,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.GroupID, db, producer, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Trade consumer stopped with error")
			}
		}()
	} else {
		close(consumerDone)
		log.Info().Msg("Kafka disabled, trade ingestion is off")
	}

	handler := api.NewHandler(svc, map[string]api.HealthCheck{
		"postgres": db.Ping,
		"redis":    classifications.Ping,
	}, log)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	shutdown(srv, consumerDone, log)
}

// shutdown drains in-flight requests and waits for the trade consumer to exit
func shutdown(srv *http.Server, consumerDone <-chan struct{}, log zerolog.Logger) {
	log.Info().Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for trade consumer")
	}
	log.Info().Msg("Shutdown complete")
}
