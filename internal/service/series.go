package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/interval"
	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/recurrence"
)

// SeriesResult — итог создания повторяющегося бронирования: что создано
// и какие окна пропущены из-за конфликтов
type SeriesResult struct {
	Created []*model.Booking
	Skipped []interval.Span
}

// CreateRecurringBooking разворачивает повторение в конкретные бронирования.
// Конфликтующее окно пропускается, остальные создаются; полностью
// конфликтующая серия возвращает пустой результат без ошибки.
func (s *BookingService) CreateRecurringBooking(
	ctx context.Context,
	resourceID, requesterID int64,
	start, end time.Time,
	pattern model.RecurrencePattern,
	until time.Time,
	notes string,
) (*SeriesResult, error) {
	if pattern == model.RecurrenceNone {
		return nil, ErrInvalidRange
	}

	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := validateWindow(resource, start, end); err != nil && !errors.Is(err, ErrConflict) {
		return nil, err
	}

	spans := recurrence.Expand(start, end, pattern, until)
	seriesID := uuid.New()
	result := &SeriesResult{}

	var parent *model.Booking
	for _, span := range spans {
		booking := &model.Booking{
			ResourceID:        resourceID,
			RequesterID:       requesterID,
			StartTime:         span.Start,
			EndTime:           span.End,
			Notes:             notes,
			IsRecurring:       true,
			RecurrencePattern: pattern,
			RecurrenceEndDate: &until,
			SeriesID:          &seriesID,
		}
		if parent != nil {
			booking.ParentBookingID = &parent.ID
		}

		created, err := s.createValidated(ctx, resource, booking)
		if errors.Is(err, ErrConflict) {
			result.Skipped = append(result.Skipped, span)
			continue
		}
		if err != nil {
			return nil, err
		}

		// Первое реально созданное бронирование становится родителем серии
		if parent == nil {
			parent = created
		}
		result.Created = append(result.Created, created)
	}

	s.logger.Info("Recurring booking created",
		zap.Int64("resource_id", resourceID),
		zap.Int64("requester_id", requesterID),
		zap.String("series_id", seriesID.String()),
		zap.String("pattern", string(pattern)),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)

	return result, nil
}

// CancelSeries отменяет родителя серии и все будущие нетерминальные
// повторения. Прошедшие и терминальные повторения не трогаются.
func (s *BookingService) CancelSeries(ctx context.Context, parentID, actorID int64) (int, error) {
	parent, err := s.bookings.GetByID(ctx, parentID)
	if err != nil {
		return 0, mapRepoError(err)
	}

	if !parent.IsSeriesParent() {
		return 0, ErrInvalidState
	}

	if err := s.authorize(ctx, actorID, parent, ActionCancel); err != nil {
		return 0, err
	}

	children, err := s.bookings.ListSeriesChildren(ctx, parentID)
	if err != nil {
		return 0, mapRepoError(err)
	}

	now := s.now()
	cancelled := 0

	members := append([]*model.Booking{parent}, children...)
	for _, member := range members {
		if member.IsTerminal() || !member.StartTime.After(now) {
			continue
		}
		if _, err := s.cancelPersisted(ctx, member); err != nil {
			// Гонка с параллельным переходом: повторение уже ушло из
			// нетерминального статуса, пропускаем
			if errors.Is(err, ErrInvalidState) {
				continue
			}
			return cancelled, err
		}
		cancelled++
	}

	s.logger.Info("Series cancelled",
		zap.Int64("parent_booking_id", parentID),
		zap.Int64("actor_id", actorID),
		zap.Int("cancelled", cancelled),
	)

	s.emit(ctx, Event{
		Kind:        EventSeriesCancelled,
		RecipientID: parent.RequesterID,
		ResourceID:  parent.ResourceID,
		BookingID:   parent.ID,
		Start:       parent.StartTime,
		End:         parent.EndTime,
	})

	return cancelled, nil
}
