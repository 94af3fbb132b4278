package service

import (
	"context"
	"time"

	"github.com/resourcehub/booking-engine/internal/model"
)

// Интерфейсы хранилища, которые нужны сервисам. Реализации на pgx живут в
// internal/repository; тесты подставляют in-memory двойники. Атомарные
// секции (проверка конфликтов + запись) — обязанность реализации.

// BookingStore — операции над бронированиями
type BookingStore interface {
	// CreatePending атомарно проверяет конфликты и создаёт бронирование в pending
	CreatePending(ctx context.Context, booking *model.Booking) error
	// ApprovePending атомарно повторяет проверку (исключая само бронирование)
	// и переводит pending в approved
	ApprovePending(ctx context.Context, id int64) (*model.Booking, error)
	// UpdateStatus переводит бронирование из from в to (CAS по статусу)
	UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus, reason *string) (*model.Booking, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error)
	ListActiveInWindow(ctx context.Context, resourceID int64, from, to time.Time) ([]*model.Booking, error)
	ListSeriesChildren(ctx context.Context, parentID int64) ([]*model.Booking, error)
	SetExternalEventRef(ctx context.Context, id int64, ref *string) error
	// CompleteDueBefore помечает approved бронирования с end_time <= now как completed
	CompleteDueBefore(ctx context.Context, now time.Time) (int64, error)
}

// WaitlistStore — операции над очередью ожидания
type WaitlistStore interface {
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	GetByID(ctx context.Context, id int64) (*model.WaitlistEntry, error)
	// ListWaitingOverlapping возвращает ожидающие записи в порядке обслуживания:
	// приоритет по убыванию, внутри приоритета FIFO
	ListWaitingOverlapping(ctx context.Context, resourceID int64, from, to time.Time) ([]*model.WaitlistEntry, error)
	HasNotifiedOverlapping(ctx context.Context, resourceID int64, from, to time.Time) (bool, error)
	MarkNotified(ctx context.Context, id int64, notifiedAt, expiresAt time.Time) (*model.WaitlistEntry, error)
	MarkConverted(ctx context.Context, id int64) error
	MarkExpired(ctx context.Context, id int64, from model.WaitlistStatus) error
	ListNotifiedDue(ctx context.Context, now time.Time) ([]*model.WaitlistEntry, error)
	ExpireStaleWaiting(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOwned(ctx context.Context, id, userID int64) (*model.WaitlistEntry, error)
	CountAhead(ctx context.Context, entry *model.WaitlistEntry) (int, error)
}

// ResourceStore — чтение каталога ресурсов (каталогом владеет другая система)
type ResourceStore interface {
	GetByID(ctx context.Context, id int64) (*model.Resource, error)
}

// UserStore — чтение справочника пользователей
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Action — действие над бронированием, требующее проверки прав
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
)

// Authorizer отвечает на вопрос «может ли пользователь выполнить действие».
// Движок доверяет ответу и не содержит собственной политики прав.
type Authorizer interface {
	CanAct(ctx context.Context, userID int64, booking *model.Booking, action Action) (bool, error)
}

// Event — уведомление о событии движка для внешних получателей
type Event struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	RecipientID int64     `json:"recipient_id"`
	ResourceID  int64     `json:"resource_id"`
	BookingID   int64     `json:"booking_id,omitempty"`
	EntryID     int64     `json:"entry_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Виды событий
const (
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventSeriesCancelled  = "series.cancelled"
	EventWaitlistOffer    = "waitlist.offer"
)

// Notifier доставляет события получателям. Fire-and-forget: реализация
// логирует свои ошибки сама, переходы статусов её не ждут.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// CalendarSync — коллаборатор синхронизации с внешним календарём.
// Вызывается best-effort после approve и cancel, сбои не откатывают переход.
type CalendarSync interface {
	CreateEvent(ctx context.Context, booking *model.Booking) (string, error)
	DeleteEvent(ctx context.Context, externalRef string) error
}

// WaitlistCascader запускает каскад очереди ожидания для освободившегося окна
type WaitlistCascader interface {
	OnBookingCancelled(ctx context.Context, resourceID int64, freedStart, freedEnd time.Time) error
}
