// Package cli реализует инструмент командной строки Redular.
//
// # Обзор
//
// CLI — клиентская утилита для HTTP API демона redular.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Redular API. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8090")
//	events, err := client.ListEvents(cli.ListEventsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
// redular event list --json | jq .
//
// ## Commands
//
//   - event: schedule, list, delete, expiry, instant, prune
//   - history
//   - instance
//
// Каждая группа создаётся через фабричную функцию (NewEventCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
