package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents   Exchange = "redular.events"
	ExchangeCommands Exchange = "redular.commands"
	ExchangeDLQ      Exchange = "redular.dlq"
)

// Queues — имена очередей.
const (
	QueueCommands Queue = "redular.commands"
	QueueDLQ      Queue = "redular.dlq"
)

// Routing keys.
const (
	RoutingKeyCommand     RoutingKey = "command"
	RoutingKeyDLQCommands RoutingKey = "commands"

	// eventRoutingPrefix — префикс ключа сработавшего события: event.<name>.
	eventRoutingPrefix = "event."
)

// EventRoutingKey возвращает routing key сработавшего события name.
// Подписчики биндят свои очереди на redular.events по шаблону event.# или event.<name>.
func EventRoutingKey(name string) RoutingKey {
	return RoutingKey(eventRoutingPrefix + name)
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		return bindQueues(ch)
	})
}

type exchangeDecl struct {
	name Exchange
	kind string
}

func exchanges() []exchangeDecl {
	return []exchangeDecl{
		// Очереди подписчиков на события создают сами потребители
		{ExchangeEvents, amqp.ExchangeTopic},
		{ExchangeCommands, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, ex := range exchanges() {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

func queues() []queueDecl {
	return []queueDecl{
		// redular.commands — некорректные команды уходят в DLQ
		{QueueCommands, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQCommands),
		}},
		{QueueDLQ, nil},
	}
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	for _, q := range queues() {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

func bindings() []bindingDecl {
	return []bindingDecl{
		{QueueCommands, RoutingKeyCommand, ExchangeCommands},
		{QueueDLQ, RoutingKeyDLQCommands, ExchangeDLQ},
	}
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings() {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Redular RabbitMQ Topology:

    redular.events (topic)
    └── event.<name>            Publisher: Scheduler relay
            Consumers: external subscribers

    redular.commands (direct)
    └── redular.commands [routing: command]
            Consumer: ingest
            DLQ: redular.dlq

    redular.dlq (direct)
    └── redular.dlq [routing: commands]
            Manual processing
  `
}
