package model

import "time"

// Resource — запись каталога ресурсов. Движок бронирований только читает её:
// управление каталогом живёт в отдельном сервисе.
type Resource struct {
	ID                 int64            `json:"id"`
	OwnerID            int64            `json:"owner_id"`
	Title              string           `json:"title"`
	RequiresApproval   bool             `json:"requires_approval"`
	MinDurationMinutes *int             `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes *int             `json:"max_duration_minutes,omitempty"`
	Blackouts          []BlackoutWindow `json:"blackouts,omitempty"` // Окна недоступности
	CreatedAt          time.Time        `json:"created_at"`
}

// BlackoutWindow — период когда ресурс недоступен для бронирования
type BlackoutWindow struct {
	ID         int64     `json:"id"`
	ResourceID int64     `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Reason     string    `json:"reason"`
}
