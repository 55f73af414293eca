// Package telemetry обеспечивает наблюдаемость планировщика.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Логгер настраивается переменными LOG_LEVEL и LOG_FORMAT, каждая
// запись несёт service=redular, пароли в атрибутах *_url скрываются.
// Метрики экспортируются на /metrics endpoint.
package telemetry
