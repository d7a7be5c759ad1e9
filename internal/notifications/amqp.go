package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// AMQPSink дублирует события хаба в topic-exchange RabbitMQ.
// Ключ маршрутизации: user.<id>.<collection>.<type>.
type AMQPSink struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

type amqpMessage struct {
	UserID uuid.UUID `json:"user_id"`
	Event  Event     `json:"event"`
}

// NewAMQPSink подключается к брокеру и объявляет exchange.
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	slog.Info("amqp event sink ready", slog.String("exchange", exchange))

	return &AMQPSink{conn: conn, channel: channel, exchange: exchange}, nil
}

// Deliver публикует событие как persistent JSON-сообщение.
func (s *AMQPSink) Deliver(ctx context.Context, userID uuid.UUID, event Event) error {
	body, err := json.Marshal(amqpMessage{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.channel.PublishWithContext(ctx, s.exchange, RoutingKey(userID, event), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Close закрывает канал и соединение.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// RoutingKey строит ключ маршрутизации события.
func RoutingKey(userID uuid.UUID, event Event) string {
	collection := string(event.Collection)
	if collection == "" {
		collection = "all"
	}
	return fmt.Sprintf("user.%s.%s.%s", userID, collection, event.Type)
}
