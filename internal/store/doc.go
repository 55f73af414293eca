// Package store — доступ к key-value хранилищу (Redis) для планировщика.
//
// Структура:
//   - store.go  — интерфейс Store и типы подписок
//   - cursor.go — возобновляемый SCAN курсор
//   - redis.go  — реализация на go-redis (три соединения на инстанс)
//   - memory.go — in-memory реализация с управляемыми часами для тестов
//
// Подписанное соединение Redis не может выполнять команды, поэтому у каждого
// инстанса три клиента: primary для команд, expiry для уведомлений об истечении
// ключей и instant для канала мгновенных событий.
package store
