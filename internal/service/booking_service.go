package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/interval"
	"github.com/resourcehub/booking-engine/internal/model"
)

// BookingService владеет жизненным циклом бронирования. Каждый переход
// статуса проходит через таблицу model.CanTransition, а создание и
// одобрение дополнительно перепроверяют конфликты атомарно в хранилище.
type BookingService struct {
	bookings  BookingStore
	resources ResourceStore
	auth      Authorizer
	calendar  CalendarSync     // может быть nil
	notifier  Notifier         // может быть nil
	waitlist  WaitlistCascader // подключается после создания, см. AttachWaitlist
	logger    *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	resources ResourceStore,
	auth Authorizer,
	calendar CalendarSync,
	notifier Notifier,
	logger *zap.Logger,
	now func() time.Time,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:  bookings,
		resources: resources,
		auth:      auth,
		calendar:  calendar,
		notifier:  notifier,
		logger:    logger,
		now:       now,
	}
}

// AttachWaitlist подключает каскад очереди ожидания.
// Отдельный сеттер разрывает взаимную зависимость сервисов:
// конвертация записи очереди идёт через обычный путь создания бронирования.
func (s *BookingService) AttachWaitlist(cascader WaitlistCascader) {
	s.waitlist = cascader
}

// CreateBooking создаёт бронирование. Если ресурс не требует одобрения,
// заявка сразу проходит обычный переход pending -> approved.
func (s *BookingService) CreateBooking(ctx context.Context, resourceID, requesterID int64, start, end time.Time, notes string) (*model.Booking, error) {
	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	booking := &model.Booking{
		ResourceID:        resourceID,
		RequesterID:       requesterID,
		StartTime:         start,
		EndTime:           end,
		Notes:             notes,
		RecurrencePattern: model.RecurrenceNone,
	}

	return s.createValidated(ctx, resource, booking)
}

// createValidated — общий путь создания для одиночных бронирований,
// повторений серии и конвертации из очереди ожидания
func (s *BookingService) createValidated(ctx context.Context, resource *model.Resource, booking *model.Booking) (*model.Booking, error) {
	if err := validateWindow(resource, booking.StartTime, booking.EndTime); err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusPending
	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("resource_id", booking.ResourceID),
		zap.Int64("requester_id", booking.RequesterID),
		zap.Time("start_time", booking.StartTime),
		zap.Bool("requires_approval", resource.RequiresApproval),
	)

	if resource.RequiresApproval {
		return booking, nil
	}

	// Конфликт здесь невозможен: наша pending-заявка уже держит окно
	return s.approvePersisted(ctx, booking.ID)
}

// ApproveBooking одобряет заявку. Конфликты перепроверяются исключая само
// бронирование: другие pending-заявки могли быть одобрены после создания.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.authorize(ctx, actorID, booking, ActionApprove); err != nil {
		return nil, err
	}

	if !model.CanTransition(booking.Status, model.BookingStatusApproved) {
		return nil, ErrInvalidState
	}

	return s.approvePersisted(ctx, bookingID)
}

func (s *BookingService) approvePersisted(ctx context.Context, bookingID int64) (*model.Booking, error) {
	approved, err := s.bookings.ApprovePending(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Booking approved",
		zap.Int64("booking_id", approved.ID),
		zap.Int64("resource_id", approved.ResourceID),
	)

	s.syncCalendarCreate(ctx, approved)
	s.emit(ctx, Event{
		Kind:        EventBookingApproved,
		RecipientID: approved.RequesterID,
		ResourceID:  approved.ResourceID,
		BookingID:   approved.ID,
		Start:       approved.StartTime,
		End:         approved.EndTime,
	})

	return approved, nil
}

// RejectBooking отклоняет pending-заявку с необязательной причиной
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, actorID int64, reason *string) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.authorize(ctx, actorID, booking, ActionReject); err != nil {
		return nil, err
	}

	if !model.CanTransition(booking.Status, model.BookingStatusRejected) {
		return nil, ErrInvalidState
	}

	rejected, err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingStatusPending, model.BookingStatusRejected, reason)
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Booking rejected",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
	)

	s.emit(ctx, Event{
		Kind:        EventBookingRejected,
		RecipientID: rejected.RequesterID,
		ResourceID:  rejected.ResourceID,
		BookingID:   rejected.ID,
		Start:       rejected.StartTime,
		End:         rejected.EndTime,
	})

	return rejected, nil
}

// CancelBooking отменяет любое нетерминальное бронирование. Отмена
// одобренного запускает каскад очереди ожидания и удаление события календаря.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := s.authorize(ctx, actorID, booking, ActionCancel); err != nil {
		return nil, err
	}

	if !model.CanTransition(booking.Status, model.BookingStatusCancelled) {
		return nil, ErrInvalidState
	}

	cancelled, err := s.cancelPersisted(ctx, booking)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
	)

	s.emit(ctx, Event{
		Kind:        EventBookingCancelled,
		RecipientID: cancelled.RequesterID,
		ResourceID:  cancelled.ResourceID,
		BookingID:   cancelled.ID,
		Start:       cancelled.StartTime,
		End:         cancelled.EndTime,
	})

	return cancelled, nil
}

// cancelPersisted выполняет сам переход в cancelled и связанные каскады.
// Права уже проверены вызывающим.
func (s *BookingService) cancelPersisted(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	wasApproved := booking.Status == model.BookingStatusApproved

	cancelled, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, model.BookingStatusCancelled, nil)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if wasApproved {
		s.syncCalendarDelete(ctx, cancelled)
		s.cascadeFreedWindow(ctx, cancelled)
	}

	return cancelled, nil
}

// cascadeFreedWindow передаёт освободившееся окно очереди ожидания.
// Сбой каскада не блокирует отмену: периодический sweep его повторит.
func (s *BookingService) cascadeFreedWindow(ctx context.Context, booking *model.Booking) {
	if s.waitlist == nil {
		return
	}
	if err := s.waitlist.OnBookingCancelled(ctx, booking.ResourceID, booking.StartTime, booking.EndTime); err != nil {
		s.logger.Error("Waitlist cascade failed",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("resource_id", booking.ResourceID),
			zap.Error(err))
	}
}

// SweepCompleted переводит approved бронирования с прошедшим временем
// окончания в completed. Запускается планировщиком, идемпотентен.
func (s *BookingService) SweepCompleted(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.bookings.CompleteDueBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep completed bookings: %w", err)
	}

	if count > 0 {
		s.logger.Info("Bookings completed", zap.Int64("count", count))
	}

	return count, nil
}

// GetBooking получает бронирование по ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return booking, nil
}

// ListUserBookings получает все бронирования пользователя
func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*model.Booking, error) {
	return s.bookings.ListByRequester(ctx, userID)
}

func (s *BookingService) authorize(ctx context.Context, actorID int64, booking *model.Booking, action Action) error {
	ok, err := s.auth.CanAct(ctx, actorID, booking, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// syncCalendarCreate создаёт событие во внешнем календаре в фоне.
// Ссылка на событие сохраняется по готовности, сбой только логируется.
func (s *BookingService) syncCalendarCreate(ctx context.Context, booking *model.Booking) {
	if s.calendar == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		ref, err := s.calendar.CreateEvent(detached, booking)
		if err != nil {
			s.logger.Warn("Calendar event creation failed",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err))
			return
		}
		if err := s.bookings.SetExternalEventRef(detached, booking.ID, &ref); err != nil {
			s.logger.Warn("Failed to store calendar event ref",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err))
		}
	}()
}

// syncCalendarDelete удаляет событие внешнего календаря в фоне
func (s *BookingService) syncCalendarDelete(ctx context.Context, booking *model.Booking) {
	if s.calendar == nil || booking.ExternalEventRef == nil {
		return
	}

	ref := *booking.ExternalEventRef
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.calendar.DeleteEvent(detached, ref); err != nil {
			s.logger.Warn("Calendar event deletion failed",
				zap.Int64("booking_id", booking.ID),
				zap.String("external_ref", ref),
				zap.Error(err))
			return
		}
		if err := s.bookings.SetExternalEventRef(detached, booking.ID, nil); err != nil {
			s.logger.Warn("Failed to clear calendar event ref",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err))
		}
	}()
}

// emit отправляет событие получателю не дожидаясь доставки
func (s *BookingService) emit(ctx context.Context, event Event) {
	if s.notifier == nil {
		return
	}

	event.ID = uuid.NewString()
	event.OccurredAt = s.now()

	detached := context.WithoutCancel(ctx)
	go s.notifier.Notify(detached, event)
}

// validateWindow проверяет окно бронирования против правил ресурса
func validateWindow(resource *model.Resource, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidRange
	}

	duration := end.Sub(start)
	if resource.MinDurationMinutes != nil && duration < time.Duration(*resource.MinDurationMinutes)*time.Minute {
		return fmt.Errorf("%w: shorter than resource minimum", ErrInvalidRange)
	}
	if resource.MaxDurationMinutes != nil && duration > time.Duration(*resource.MaxDurationMinutes)*time.Minute {
		return fmt.Errorf("%w: longer than resource maximum", ErrInvalidRange)
	}

	candidate := interval.Span{Start: start, End: end}
	for _, blackout := range resource.Blackouts {
		if interval.Overlaps(candidate, interval.Span{Start: blackout.StartTime, End: blackout.EndTime}) {
			return fmt.Errorf("%w: resource unavailable in this window", ErrConflict)
		}
	}

	return nil
}
