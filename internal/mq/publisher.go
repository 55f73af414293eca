package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/redular/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeEventFired      MessageType = "event.fired"
	MessageTypeCommandSchedule MessageType = "command.schedule"
	MessageTypeCommandDelete   MessageType = "command.delete"
	MessageTypeCommandInstant  MessageType = "command.instant"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым id и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// EventFiredPayload — payload сообщения о сработавшем событии.
type EventFiredPayload struct {
	Key     string          `json:"key,omitempty"`
	Scope   string          `json:"scope"`
	Name    string          `json:"name"`
	EventID string          `json:"event_id,omitempty"`
	Source  domain.Source   `json:"source"`
	Data    json.RawMessage `json:"data,omitempty"`
	FiredAt time.Time       `json:"fired_at"`
}

// NewEventFiredPayload переводит сработавшее событие в payload сообщения.
func NewEventFiredPayload(ev domain.FiredEvent) EventFiredPayload {
	return EventFiredPayload{
		Key:     ev.Key,
		Scope:   ev.Scope,
		Name:    ev.Name,
		EventID: ev.ID,
		Source:  ev.Source,
		Data:    ev.Payload,
		FiredAt: ev.FiredAt.UTC(),
	}
}

// SchedulePayload — команда запланировать событие.
type SchedulePayload struct {
	Name    string          `json:"name"`
	At      time.Time       `json:"at"`
	Global  bool            `json:"global,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// DeletePayload — команда удалить событие.
type DeletePayload struct {
	EventKey string `json:"event_key"`
}

// InstantPayload — команда отправить мгновенное событие.
type InstantPayload struct {
	Name    string          `json:"name"`
	Global  bool            `json:"global,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishEventFired публикует сработавшее событие в redular.events
// с routing key event.<name>.
func (p *Publisher) PublishEventFired(ctx context.Context, ev domain.FiredEvent) error {
	msg := NewMessage(MessageTypeEventFired, NewEventFiredPayload(ev))
	return p.Publish(ctx, ExchangeEvents, EventRoutingKey(ev.Name), msg)
}
