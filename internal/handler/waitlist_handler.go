package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resourcehub/booking-engine/internal/service"
)

type WaitlistHandler struct {
	waitlist *service.WaitlistService
}

func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist}
}

type joinRequest struct {
	ResourceID int64     `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Priority   int       `json:"priority"`
}

// Join обрабатывает POST /v1/waitlist
func (h *WaitlistHandler) Join(c echo.Context) error {
	var body joinRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ResourceID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}

	entry, err := h.waitlist.Join(c.Request().Context(),
		body.ResourceID, currentUserID(c), body.StartTime, body.EndTime, body.Priority)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, entry)
}

type convertRequest struct {
	Notes string `json:"notes"`
}

// Convert обрабатывает POST /v1/waitlist/:id/convert
func (h *WaitlistHandler) Convert(c echo.Context) error {
	entryID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	var body convertRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	booking, err := h.waitlist.Convert(c.Request().Context(), entryID, currentUserID(c), body.Notes)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, booking)
}

// Leave обрабатывает DELETE /v1/waitlist/:id
func (h *WaitlistHandler) Leave(c echo.Context) error {
	entryID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	if err := h.waitlist.Leave(c.Request().Context(), entryID, currentUserID(c)); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Position обрабатывает GET /v1/waitlist/:id/position
func (h *WaitlistHandler) Position(c echo.Context) error {
	entryID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	position, err := h.waitlist.Position(c.Request().Context(), entryID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"position": position})
}
