package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/service"
)

// LogNotifier пишет события в лог. Используется когда брокер и Telegram
// не сконфигурированы, например при локальной разработке.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event service.Event) {
	n.logger.Info("Event emitted",
		zap.String("kind", event.Kind),
		zap.String("event_id", event.ID),
		zap.Int64("recipient_id", event.RecipientID),
		zap.Int64("resource_id", event.ResourceID),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("entry_id", event.EntryID),
	)
}

// Fanout рассылает событие во все каналы по очереди
type Fanout []service.Notifier

func (f Fanout) Notify(ctx context.Context, event service.Event) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}
