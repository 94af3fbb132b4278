package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает одобрения владельца ресурса
	BookingStatusApproved  BookingStatus = "approved"  // Подтверждено
	BookingStatusRejected  BookingStatus = "rejected"  // Отклонено владельцем
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
	BookingStatusCompleted BookingStatus = "completed" // Завершено (время окончания прошло)
)

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "none"
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

type Booking struct {
	ID                int64             `json:"id"`
	ResourceID        int64             `json:"resource_id"`
	RequesterID       int64             `json:"requester_id"`
	StartTime         time.Time         `json:"start_time"` // Полуоткрытый интервал [start, end)
	EndTime           time.Time         `json:"end_time"`
	Status            BookingStatus     `json:"status"`
	Notes             string            `json:"notes"`
	Reason            *string           `json:"reason,omitempty"` // Причина отклонения или отмены
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern"`
	RecurrenceEndDate *time.Time        `json:"recurrence_end_date,omitempty"`
	ParentBookingID   *int64            `json:"parent_booking_id,omitempty"` // Ссылка на первое бронирование серии
	SeriesID          *uuid.UUID        `json:"series_id,omitempty"`         // Общий идентификатор серии
	ExternalEventRef  *string           `json:"external_event_ref,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsActive проверяет учитывается ли бронирование при поиске конфликтов
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusApproved
}

// IsTerminal проверяет является ли статус бронирования конечным
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusRejected ||
		b.Status == BookingStatusCancelled ||
		b.Status == BookingStatusCompleted
}

// IsSeriesParent проверяет является ли бронирование первым в серии
func (b *Booking) IsSeriesParent() bool {
	return b.IsRecurring && b.ParentBookingID == nil
}

// bookingTransitions — единственное место где описана таблица переходов.
// Возврат в pending невозможен ни из какого статуса.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved: {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransition проверяет разрешён ли переход между статусами бронирования
func CanTransition(from, to BookingStatus) bool {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
