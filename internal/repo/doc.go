// Package repo хранит журнал сработавших событий в PostgreSQL.
//
// Журнал необязателен: без DB_URL планировщик работает без него.
// Таблица fired_events создаётся EnsureSchema при старте.
package repo
