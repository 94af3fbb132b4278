package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/service"
)

// TelegramNotifier дублирует события движка в операторский чат.
// Канал для людей, не для машин: человекочитаемый текст вместо JSON.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: b, chatID: chatID, logger: logger}, nil
}

// Notify отправляет событие сообщением в чат
func (n *TelegramNotifier) Notify(ctx context.Context, event service.Event) {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   formatEvent(event),
	})
	if err != nil {
		n.logger.Error("Failed to send telegram notification",
			zap.String("kind", event.Kind),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func formatEvent(event service.Event) string {
	window := fmt.Sprintf("%s — %s",
		event.Start.Format("02.01.2006 15:04"),
		event.End.Format("15:04"))

	switch event.Kind {
	case service.EventBookingApproved:
		return fmt.Sprintf("✅ Booking #%d approved\nResource %d, %s", event.BookingID, event.ResourceID, window)
	case service.EventBookingRejected:
		return fmt.Sprintf("❌ Booking #%d rejected\nResource %d, %s", event.BookingID, event.ResourceID, window)
	case service.EventBookingCancelled:
		return fmt.Sprintf("🚫 Booking #%d cancelled\nResource %d, %s", event.BookingID, event.ResourceID, window)
	case service.EventSeriesCancelled:
		return fmt.Sprintf("🚫 Series of booking #%d cancelled\nResource %d", event.BookingID, event.ResourceID)
	case service.EventWaitlistOffer:
		return fmt.Sprintf("🔔 Waitlist offer for user %d\nResource %d, %s", event.RecipientID, event.ResourceID, window)
	default:
		return fmt.Sprintf("Event %s for resource %d", event.Kind, event.ResourceID)
	}
}
