package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// Identity извлекает идентификатор пользователя из заголовка X-User-ID.
// Аутентификацией занимается внешний шлюз, движок доверяет заголовку.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("X-User-ID")
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or invalid X-User-ID header"})
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func currentUserID(c echo.Context) int64 {
	userID, _ := c.Get(userIDKey).(int64)
	return userID
}
