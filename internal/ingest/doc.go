// Package ingest принимает команды планировщику из очереди RabbitMQ.
//
// Команды:
//   - command.schedule — {name, at, global, payload, id}
//   - command.delete   — {event_key}
//   - command.instant  — {name, global, payload}
//
// Некорректная команда отклоняется в DLQ (mq.ErrReject). Сбой хранилища,
// из-за которого команду не удалось применить, возвращает сообщение в очередь.
package ingest
