package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BookingSweeper завершает approved бронирования с прошедшим окончанием
type BookingSweeper interface {
	SweepCompleted(ctx context.Context, now time.Time) (int64, error)
}

// WaitlistSweeper протухает просроченные предложения и старые записи очереди
type WaitlistSweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper управляет фоновыми задачами движка
type Sweeper struct {
	bookings BookingSweeper
	waitlist WaitlistSweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewSweeper создаёт новый планировщик фоновых задач
func NewSweeper(bookings BookingSweeper, waitlist WaitlistSweeper, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		waitlist: waitlist,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting background sweeper", zap.Duration("interval", s.interval))

	go s.runSweepTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping background sweeper")
	close(s.stopChan)
}

// runSweepTask периодически запускает оба свипа. Свипы идемпотентны,
// поэтому лишний запуск безопасен.
func (s *Sweeper) runSweepTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Sweep task cancelled")
			return
		}
	}
}

// sweep выполняет один проход обоих свипов
func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	completed, err := s.bookings.SweepCompleted(ctx, now)
	if err != nil {
		s.logger.Error("Failed to sweep completed bookings", zap.Error(err))
	}

	expired, err := s.waitlist.SweepExpirations(ctx, now)
	if err != nil {
		s.logger.Error("Failed to sweep waitlist expirations", zap.Error(err))
	}

	if completed > 0 || expired > 0 {
		s.logger.Info("Sweep pass finished",
			zap.Int64("bookings_completed", completed),
			zap.Int64("waitlist_expired", expired),
		)
	}
}
