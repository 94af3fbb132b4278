package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/repository"
)

// Сроки очереди ожидания по умолчанию
const (
	DefaultNotifyWindow = 24 * time.Hour
	DefaultStaleAfter   = 30 * 24 * time.Hour
)

// BookingCreator — часть BookingService, нужная для конвертации записи
// очереди в бронирование обычным путём создания
type BookingCreator interface {
	CreateBooking(ctx context.Context, resourceID, requesterID int64, start, end time.Time, notes string) (*model.Booking, error)
}

// WaitlistService управляет очередью ожидания: вступление, уведомление при
// освобождении окна, конвертация в бронирование и протухание предложений.
type WaitlistService struct {
	entries      WaitlistStore
	resources    ResourceStore
	bookings     BookingCreator
	notifier     Notifier // может быть nil
	logger       *zap.Logger
	now          func() time.Time
	notifyWindow time.Duration
	staleAfter   time.Duration
}

func NewWaitlistService(
	entries WaitlistStore,
	resources ResourceStore,
	bookings BookingCreator,
	notifier Notifier,
	logger *zap.Logger,
	now func() time.Time,
) *WaitlistService {
	if now == nil {
		now = time.Now
	}
	return &WaitlistService{
		entries:      entries,
		resources:    resources,
		bookings:     bookings,
		notifier:     notifier,
		logger:       logger,
		now:          now,
		notifyWindow: DefaultNotifyWindow,
		staleAfter:   DefaultStaleAfter,
	}
}

// SetNotifyWindow меняет срок действия предложения (по умолчанию 24 часа)
func (s *WaitlistService) SetNotifyWindow(window time.Duration) {
	s.notifyWindow = window
}

// Join ставит пользователя в очередь на окно. Повторное вступление с тем же
// окном, пока активна прежняя запись, возвращает ErrDuplicateEntry.
func (s *WaitlistService) Join(ctx context.Context, resourceID, userID int64, start, end time.Time, priority int) (*model.WaitlistEntry, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	if _, err := s.resources.GetByID(ctx, resourceID); err != nil {
		return nil, mapRepoError(err)
	}

	entry := &model.WaitlistEntry{
		ResourceID:     resourceID,
		UserID:         userID,
		RequestedStart: start,
		RequestedEnd:   end,
		Status:         model.WaitlistStatusWaiting,
		Priority:       priority,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Waitlist entry created",
		zap.Int64("entry_id", entry.ID),
		zap.Int64("resource_id", resourceID),
		zap.Int64("user_id", userID),
		zap.Int("priority", priority),
	)

	return entry, nil
}

// OnBookingCancelled обрабатывает освободившееся окно: уведомляется не
// больше одной записи на пересекающееся окно, кандидаты берутся в порядке
// приоритета, гонки за одну запись разрешает CAS в хранилище.
func (s *WaitlistService) OnBookingCancelled(ctx context.Context, resourceID int64, freedStart, freedEnd time.Time) error {
	already, err := s.entries.HasNotifiedOverlapping(ctx, resourceID, freedStart, freedEnd)
	if err != nil {
		return fmt.Errorf("check notified entries: %w", err)
	}
	if already {
		return nil
	}

	candidates, err := s.entries.ListWaitingOverlapping(ctx, resourceID, freedStart, freedEnd)
	if err != nil {
		return fmt.Errorf("list waitlist candidates: %w", err)
	}

	now := s.now()
	for _, candidate := range candidates {
		notified, err := s.entries.MarkNotified(ctx, candidate.ID, now, now.Add(s.notifyWindow))
		if errors.Is(err, repository.ErrStale) {
			// Запись увели параллельно, пробуем следующую
			continue
		}
		if err != nil {
			return fmt.Errorf("mark entry notified: %w", err)
		}

		s.logger.Info("Waitlist entry notified",
			zap.Int64("entry_id", notified.ID),
			zap.Int64("resource_id", resourceID),
			zap.Int64("user_id", notified.UserID),
			zap.Timep("notify_expires_at", notified.NotifyExpiresAt),
		)

		s.emitOffer(ctx, notified)
		return nil
	}

	return nil
}

// Convert превращает предложение в бронирование. Проверка конфликтов идёт
// обычным путём создания: к моменту конвертации окно могли занять снова.
func (s *WaitlistService) Convert(ctx context.Context, entryID, userID int64, notes string) (*model.Booking, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if entry.UserID != userID {
		return nil, ErrUnauthorized
	}

	switch entry.Status {
	case model.WaitlistStatusNotified:
	case model.WaitlistStatusExpired:
		return nil, ErrEntryExpired
	default:
		return nil, ErrInvalidState
	}

	if entry.NotifyExpiresAt != nil && s.now().After(*entry.NotifyExpiresAt) {
		return nil, ErrEntryExpired
	}

	booking, err := s.bookings.CreateBooking(ctx, entry.ResourceID, entry.UserID, entry.RequestedStart, entry.RequestedEnd, notes)
	if err != nil {
		// Запись остаётся notified: до дедлайна пользователь может
		// попробовать ещё раз, дальше её добьёт sweep
		return nil, err
	}

	if err := s.entries.MarkConverted(ctx, entryID); err != nil {
		// Бронирование уже создано, откатывать нечего
		s.logger.Error("Failed to mark waitlist entry converted",
			zap.Int64("entry_id", entryID),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}

	s.logger.Info("Waitlist entry converted",
		zap.Int64("entry_id", entryID),
		zap.Int64("booking_id", booking.ID),
	)

	return booking, nil
}

// Leave убирает собственную запись из очереди. Если запись была notified,
// освободившееся предложение передаётся следующему кандидату.
func (s *WaitlistService) Leave(ctx context.Context, entryID, userID int64) error {
	removed, err := s.entries.DeleteOwned(ctx, entryID, userID)
	if err != nil {
		return mapRepoError(err)
	}

	s.logger.Info("Waitlist entry removed",
		zap.Int64("entry_id", entryID),
		zap.Int64("user_id", userID),
	)

	if removed.Status == model.WaitlistStatusNotified {
		return s.OnBookingCancelled(ctx, removed.ResourceID, removed.RequestedStart, removed.RequestedEnd)
	}

	return nil
}

// Position возвращает место записи в очереди начиная с 1.
// Для записей вне статуса waiting позиция не определена, возвращается 0.
func (s *WaitlistService) Position(ctx context.Context, entryID int64) (int, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return 0, mapRepoError(err)
	}

	if entry.Status != model.WaitlistStatusWaiting {
		return 0, nil
	}

	ahead, err := s.entries.CountAhead(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("count entries ahead: %w", err)
	}

	return ahead + 1, nil
}

// SweepExpirations протухает просроченные предложения и слишком старые
// ожидающие записи. Каждое протухшее предложение освобождает окно для
// следующего кандидата. Идемпотентен, запускается планировщиком.
func (s *WaitlistService) SweepExpirations(ctx context.Context, now time.Time) (int64, error) {
	due, err := s.entries.ListNotifiedDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due offers: %w", err)
	}

	var expired int64
	for _, entry := range due {
		if err := s.entries.MarkExpired(ctx, entry.ID, model.WaitlistStatusNotified); err != nil {
			// Конвертация успела раньше — не трогаем
			if errors.Is(err, repository.ErrStale) {
				continue
			}
			return expired, fmt.Errorf("expire offer: %w", err)
		}
		expired++

		s.logger.Info("Waitlist offer expired",
			zap.Int64("entry_id", entry.ID),
			zap.Int64("resource_id", entry.ResourceID),
		)

		// Окно снова свободно, передаём предложение дальше
		if err := s.OnBookingCancelled(ctx, entry.ResourceID, entry.RequestedStart, entry.RequestedEnd); err != nil {
			s.logger.Error("Failed to pass expired offer along",
				zap.Int64("entry_id", entry.ID),
				zap.Error(err))
		}
	}

	stale, err := s.entries.ExpireStaleWaiting(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return expired, fmt.Errorf("expire stale waiting entries: %w", err)
	}

	if expired > 0 || stale > 0 {
		s.logger.Info("Waitlist sweep finished",
			zap.Int64("offers_expired", expired),
			zap.Int64("stale_expired", stale),
		)
	}

	return expired + stale, nil
}

// emitOffer отправляет пользователю предложение занять окно
func (s *WaitlistService) emitOffer(ctx context.Context, entry *model.WaitlistEntry) {
	if s.notifier == nil {
		return
	}

	event := Event{
		Kind:        EventWaitlistOffer,
		RecipientID: entry.UserID,
		ResourceID:  entry.ResourceID,
		EntryID:     entry.ID,
		Start:       entry.RequestedStart,
		End:         entry.RequestedEnd,
		OccurredAt:  s.now(),
	}

	detached := context.WithoutCancel(ctx)
	go s.notifier.Notify(detached, event)
}
