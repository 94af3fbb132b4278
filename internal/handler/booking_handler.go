package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/service"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type createBookingRequest struct {
	ResourceID int64     `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Notes      string    `json:"notes"`
}

// Create обрабатывает POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}

	booking, err := h.bookings.CreateBooking(c.Request().Context(),
		body.ResourceID, currentUserID(c), body.StartTime, body.EndTime, body.Notes)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, booking)
}

type createRecurringRequest struct {
	ResourceID int64     `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Pattern    string    `json:"pattern"`
	Until      time.Time `json:"until"`
	Notes      string    `json:"notes"`
}

// CreateRecurring обрабатывает POST /v1/bookings/recurring.
// Конфликтующие повторения пропускаются и возвращаются в ответе отдельно.
func (h *BookingHandler) CreateRecurring(c echo.Context) error {
	var body createRecurringRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}

	pattern := model.RecurrencePattern(body.Pattern)
	switch pattern {
	case model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pattern must be daily, weekly or monthly"})
	}

	result, err := h.bookings.CreateRecurringBooking(c.Request().Context(),
		body.ResourceID, currentUserID(c), body.StartTime, body.EndTime, pattern, body.Until, body.Notes)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"created": result.Created,
		"skipped": result.Skipped,
	})
}

// Get обрабатывает GET /v1/bookings/:id
func (h *BookingHandler) Get(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	booking, err := h.bookings.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

// ListMine обрабатывает GET /v1/my/bookings
func (h *BookingHandler) ListMine(c echo.Context) error {
	bookings, err := h.bookings.ListUserBookings(c.Request().Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, bookings)
}

// Approve обрабатывает POST /v1/bookings/:id/approve
func (h *BookingHandler) Approve(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	booking, err := h.bookings.ApproveBooking(c.Request().Context(), bookingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

type rejectRequest struct {
	Reason *string `json:"reason"`
}

// Reject обрабатывает POST /v1/bookings/:id/reject
func (h *BookingHandler) Reject(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	var body rejectRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	booking, err := h.bookings.RejectBooking(c.Request().Context(), bookingID, currentUserID(c), body.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

// Cancel обрабатывает POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	booking, err := h.bookings.CancelBooking(c.Request().Context(), bookingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, booking)
}

// CancelSeries обрабатывает POST /v1/bookings/:id/cancel-series
func (h *BookingHandler) CancelSeries(c echo.Context) error {
	bookingID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	cancelled, err := h.bookings.CancelSeries(c.Request().Context(), bookingID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"cancelled": cancelled})
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
