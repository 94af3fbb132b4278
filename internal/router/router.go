// Package router регистрирует HTTP-маршруты движка бронирования.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/resourcehub/booking-engine/internal/handler"
)

// New собирает echo-приложение: health без аутентификации, всё остальное
// под /v1 с обязательным заголовком X-User-ID.
func New(bookings *handler.BookingHandler, waitlist *handler.WaitlistHandler, health *handler.HealthHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", health.Check)

	g := e.Group("/v1", handler.Identity())

	g.POST("/bookings", bookings.Create)
	g.POST("/bookings/recurring", bookings.CreateRecurring)
	g.GET("/bookings/:id", bookings.Get)
	g.POST("/bookings/:id/approve", bookings.Approve)
	g.POST("/bookings/:id/reject", bookings.Reject)
	g.POST("/bookings/:id/cancel", bookings.Cancel)
	g.POST("/bookings/:id/cancel-series", bookings.CancelSeries)
	g.GET("/my/bookings", bookings.ListMine)

	g.POST("/waitlist", waitlist.Join)
	g.POST("/waitlist/:id/convert", waitlist.Convert)
	g.DELETE("/waitlist/:id", waitlist.Leave)
	g.GET("/waitlist/:id/position", waitlist.Position)

	return e
}
