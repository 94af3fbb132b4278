// Package calendar синхронизирует одобренные бронирования с внешним
// календарным сервисом по HTTP.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/model"
)

// Client — HTTP-клиент календарного API. Временные сбои (сеть, 5xx)
// ретраятся с экспоненциальной паузой; ответы 4xx не ретраятся.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type createEventRequest struct {
	BookingID  int64     `json:"booking_id"`
	ResourceID int64     `json:"resource_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type createEventResponse struct {
	EventID string `json:"event_id"`
}

// CreateEvent создаёт событие календаря для одобренного бронирования
// и возвращает внешний идентификатор события
func (c *Client) CreateEvent(ctx context.Context, booking *model.Booking) (string, error) {
	payload, err := json.Marshal(createEventRequest{
		BookingID:  booking.ID,
		ResourceID: booking.ResourceID,
		Title:      booking.Notes,
		Start:      booking.StartTime,
		End:        booking.EndTime,
	})
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	var eventID string
	err = c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		var body createEventResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		eventID = body.EventID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create calendar event: %w", err)
	}

	return eventID, nil
}

// DeleteEvent удаляет событие календаря по внешнему идентификатору.
// Отсутствующее событие считается удалённым.
func (c *Client) DeleteEvent(ctx context.Context, externalRef string) error {
	target := c.baseURL + "/events/" + url.PathEscape(externalRef)

	err := c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return checkStatus(resp)
	})
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}

	return nil
}

func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, fn)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("calendar api returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("calendar api returned %d", resp.StatusCode)
	}
}
