// Package keys кодирует и декодирует ключи событий в Redis.
//
// Формат ключей (регистр важен):
//
//	redular:<scope>:<name>:<id>       — ключ события (маркер с TTL)
//	redular-data:<scope>:<name>:<id>  — ключ данных (JSON payload)
//
// scope — id инстанса или "global". Ключ данных получается из ключа события
// заменой namespace, без обращения к хранилищу.
//
// Все функции пакета чистые: одинаковые входные данные дают одинаковые ключи.
// На этом держится перезапись события по идентичности (scope, name, id).
package keys
