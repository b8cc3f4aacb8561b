package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/config"
	"github.com/medbook/booking-api/internal/handler"
	accountHandler "github.com/medbook/booking-api/internal/handler/account"
	appointmentHandler "github.com/medbook/booking-api/internal/handler/appointment"
	slotHandler "github.com/medbook/booking-api/internal/handler/slot"
	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/repository/postgres"
	"github.com/medbook/booking-api/internal/router"
	accountService "github.com/medbook/booking-api/internal/service/account"
	appointmentService "github.com/medbook/booking-api/internal/service/appointment"
	slotService "github.com/medbook/booking-api/internal/service/slot"
	"github.com/medbook/booking-api/pkg/logger"
	"github.com/medbook/booking-api/pkg/metrics"
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

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("booking", "api")

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)

	// Services
	accountSvc := accountService.NewService(accountRepo, appLogger)
	slotSvc := slotService.NewService(slotRepo, accountRepo, appLogger, appMetrics)
	appointmentSvc := appointmentService.NewService(appointmentRepo, slotRepo, accountRepo, appLogger, appMetrics)

	// Handlers
	h := handler.NewHandler(db)
	accountH := accountHandler.NewHandler(accountSvc)
	slotH := slotHandler.NewHandler(slotSvc)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)

	r := router.NewRouter(accountH, slotH, appointmentH, h, router.Config{
		RateLimitRPS:  cfg.Server.RateLimitRPS,
		RateBurst:     cfg.Server.RateBurst,
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "booking_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
