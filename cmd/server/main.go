package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/app"
	"github.com/resourcehub/booking-engine/internal/calendar"
	"github.com/resourcehub/booking-engine/internal/config"
	"github.com/resourcehub/booking-engine/internal/handler"
	"github.com/resourcehub/booking-engine/internal/notify"
	"github.com/resourcehub/booking-engine/internal/repository"
	"github.com/resourcehub/booking-engine/internal/router"
	"github.com/resourcehub/booking-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting booking engine",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	_ = migrator.Close()

	// Репозитории
	bookingRepo := repository.NewBookingRepository(pool)
	waitlistRepo := repository.NewWaitlistRepository(pool)
	resourceRepo := repository.NewResourceRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Каналы доставки событий
	notifier := buildNotifier(cfg, logger)

	var calendarSync service.CalendarSync
	if cfg.CalendarAPIURL != "" {
		calendarSync = calendar.NewClient(cfg.CalendarAPIURL, logger)
		logger.Info("Calendar sync enabled", zap.String("api_url", cfg.CalendarAPIURL))
	}

	// Сервисы
	auth := service.NewOwnerAuthorizer(userRepo, resourceRepo)
	bookingService := service.NewBookingService(bookingRepo, resourceRepo, auth, calendarSync, notifier, logger, nil)
	waitlistService := service.NewWaitlistService(waitlistRepo, resourceRepo, bookingService, notifier, logger, nil)
	waitlistService.SetNotifyWindow(cfg.NotifyWindow)
	bookingService.AttachWaitlist(waitlistService)

	// Фоновые свипы
	sweeper := app.NewSweeper(bookingService, waitlistService, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	e := router.New(
		handler.NewBookingHandler(bookingService),
		handler.NewWaitlistHandler(waitlistService),
		handler.NewHealthHandler(pool),
	)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
}

// buildNotifier собирает каналы доставки из конфигурации.
// Без брокера и Telegram события уходят в лог.
func buildNotifier(cfg *config.Config, logger *zap.Logger) service.Notifier {
	var channels notify.Fanout

	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("Failed to connect to message broker", zap.Error(err))
		} else {
			channels = append(channels, amqpNotifier)
			logger.Info("AMQP notifications enabled")
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tgNotifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Error("Failed to create telegram notifier", zap.Error(err))
		} else {
			channels = append(channels, tgNotifier)
			logger.Info("Telegram notifications enabled")
		}
	}

	if len(channels) == 0 {
		return notify.NewLogNotifier(logger)
	}
	return channels
}
