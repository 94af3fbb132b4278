package service

import (
	"errors"

	"github.com/resourcehub/booking-engine/internal/repository"
)

// Таксономия ошибок движка. Восстановимые для вызывающего: ErrInvalidRange,
// ErrConflict, ErrDuplicateEntry, ErrEntryExpired. Невосстановимые (ошибка
// вызывающего): ErrInvalidState, ErrUnauthorized.
var (
	// ErrInvalidRange — конец не позже начала либо длительность вне правил ресурса
	ErrInvalidRange = errors.New("invalid time range")
	// ErrConflict — окно пересекается с активным бронированием или блэкаутом
	ErrConflict = errors.New("time slot is already booked")
	// ErrInvalidState — переход не разрешён из текущего статуса
	ErrInvalidState = errors.New("transition not allowed from current status")
	// ErrUnauthorized — у пользователя нет прав на операцию
	ErrUnauthorized = errors.New("not allowed to act on this booking")
	// ErrDuplicateEntry — идентичная запись в очереди ожидания уже есть
	ErrDuplicateEntry = errors.New("already on the waitlist for this window")
	// ErrEntryExpired — попытка конвертации после дедлайна предложения
	ErrEntryExpired = errors.New("waitlist offer has expired")
	// ErrNotFound — бронирование, ресурс или запись очереди не существует
	ErrNotFound = errors.New("not found")
)

// mapRepoError переводит ошибки хранилища в ошибки сервисного слоя
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateEntry
	case errors.Is(err, repository.ErrStale):
		return ErrInvalidState
	default:
		return err
	}
}
