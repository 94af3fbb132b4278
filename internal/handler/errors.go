// Package handler — HTTP-обработчики движка бронирования. Вся бизнес-логика
// живёт в сервисах, здесь только разбор запросов и маппинг ошибок в статусы.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resourcehub/booking-engine/internal/service"
)

// respondError переводит ошибку сервиса в HTTP-статус. Восстановимые
// ошибки (конфликт, дубликат, протухшее предложение) получают статусы,
// по которым клиент может выбрать следующий шаг.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateEntry):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEntryExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
