package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/config"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/repository/postgres"
	"github.com/medbook/booking-api/pkg/logger"
	redisBroker "github.com/medbook/booking-api/pkg/messaging/redis"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("booking", "worker")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	go processor.Start(ctx)
	go runOutboxCleanup(ctx, outboxRepo, cfg.Outbox.ProcessedRetention, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker...")
	cancel()
}

// runOutboxCleanup periodically deletes processed events older than the
// configured retention window and requeues events stranded in processing by
// a dead worker.
func runOutboxCleanup(ctx context.Context, repo repository.OutboxRepository, retention time.Duration, appLogger *logger.Logger) {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requeued, err := repo.RequeueStuck(ctx, time.Now().Add(-15*time.Minute))
			if err != nil {
				appLogger.Error(err, "failed to requeue stuck outbox events")
			} else if requeued > 0 {
				appLogger.Warn("requeued stuck outbox events", "requeued", requeued)
			}

			deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				appLogger.Error(err, "failed to clean up processed outbox events")
				continue
			}
			if deleted > 0 {
				appLogger.Info("cleaned up processed outbox events", "deleted", deleted)
			}
		}
	}
}
