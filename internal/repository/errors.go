// Ошибки уровня хранилища, общие для всех репозиториев. Сервисный слой
// переводит их в ошибки своей таксономии, обработчики — в HTTP-статусы.
package repository

import "errors"

// ErrNotFound — запрошенная строка не существует
var ErrNotFound = errors.New("repository: not found")

// ErrConflict — вставка или одобрение нарушило бы инвариант
// «активные бронирования ресурса не пересекаются»
var ErrConflict = errors.New("repository: overlapping active booking")

// ErrDuplicate — идентичная запись уже существует
// (например повторное вступление в очередь ожидания)
var ErrDuplicate = errors.New("repository: duplicate entry")

// ErrStale — CAS-обновление не прошло: статус строки уже изменился.
// Конкурентный переход успел раньше, повторять операцию бессмысленно.
var ErrStale = errors.New("repository: stale status")
