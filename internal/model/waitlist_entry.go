package model

import "time"

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"   // В очереди
	WaitlistStatusNotified  WaitlistStatus = "notified"  // Получил предложение занять слот
	WaitlistStatusConverted WaitlistStatus = "converted" // Успел забронировать освободившийся слот
	WaitlistStatusExpired   WaitlistStatus = "expired"   // Предложение истекло либо запись устарела
)

type WaitlistEntry struct {
	ID              int64          `json:"id"`
	ResourceID      int64          `json:"resource_id"`
	UserID          int64          `json:"user_id"`
	RequestedStart  time.Time      `json:"requested_start"` // Полуоткрытый интервал [start, end)
	RequestedEnd    time.Time      `json:"requested_end"`
	Status          WaitlistStatus `json:"status"`
	Priority        int            `json:"priority"` // Чем выше — тем раньше обслуживается
	CreatedAt       time.Time      `json:"created_at"`
	NotifiedAt      *time.Time     `json:"notified_at,omitempty"`
	NotifyExpiresAt *time.Time     `json:"notify_expires_at,omitempty"`
}

// IsTerminal проверяет является ли статус записи конечным
func (e *WaitlistEntry) IsTerminal() bool {
	return e.Status == WaitlistStatusConverted || e.Status == WaitlistStatusExpired
}
