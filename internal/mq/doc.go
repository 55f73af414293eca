// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сработавших событий и команд
//   - consumer.go   — потребление очереди команд
//
// Типы сообщений:
//   - event.fired       — событие сработало (relay из Scheduler)
//   - command.schedule  — запланировать событие
//   - command.delete    — удалить событие
//   - command.instant   — отправить мгновенное событие
//
// Exchanges:
//   - redular.events    — сработавшие события (topic, routing key event.<name>)
//   - redular.commands  — команды планировщику
//   - redular.dlq       — dead letter queue для некорректных команд
package mq
