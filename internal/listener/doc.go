// Package listener принимает срабатывания событий из Redis.
//
// Два источника:
//   - expiry.go  — уведомления __keyevent@<db>__:expired об истечении ключей
//     событий (отложенные события)
//   - instant.go — канал redular:instant (мгновенные события)
//
// Listener разбирает сообщение, отбрасывает чужие события (scope не равен
// id инстанса и не "global") и передаёт FiredEvent обработчику.
//
// Политика строгая: listener без обработчика — ошибка ErrNoHandler.
// Ошибка разбора payload (ErrDeserialization) тоже фатальна: Run
// возвращает её и прекращает приём. Уведомления о ключах, не похожих на
// ключи событий, молча игнорируются — в той же базе истекают и чужие ключи.
package listener
