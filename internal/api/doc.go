// Package api содержит HTTP API планировщика.
//
// Структура:
//   - handler.go         — Handler с DI (планировщик, журнал, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - event_handler.go   — обработчики для /events, /instant, /prune, /instance
//   - history_handler.go — журнал сработавших событий /history
package api
