// Package notify содержит доставку событий движка во внешние каналы:
// RabbitMQ для downstream-потребителей и Telegram для операторов ресурсов.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/resourcehub/booking-engine/internal/service"
)

const eventsQueueName = "booking.events"

// AMQPNotifier публикует события в очередь booking.events. Очередь durable,
// сообщения persistent: downstream-потребители не теряют события при
// перезапуске брокера. Ошибки публикации логируются и не влияют на переходы
// статусов — доставка best-effort.
type AMQPNotifier struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewAMQPNotifier(url string, logger *zap.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Декларация идемпотентна
	if _, err := ch.QueueDeclare(
		eventsQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPNotifier{conn: conn, ch: ch, logger: logger}, nil
}

// Notify публикует событие в очередь
func (n *AMQPNotifier) Notify(ctx context.Context, event service.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal event", zap.String("kind", event.Kind), zap.Error(err))
		return
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	n.mu.Lock()
	err = n.ch.PublishWithContext(ctx,
		"",              // default exchange
		eventsQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		pub,
	)
	n.mu.Unlock()

	if err != nil {
		n.logger.Error("Failed to publish event",
			zap.String("kind", event.Kind),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	n.logger.Debug("Event published",
		zap.String("kind", event.Kind),
		zap.String("event_id", event.ID))
}

// Close закрывает канал и соединение с брокером
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
